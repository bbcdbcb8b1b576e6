package scene

import "errors"

// Scene errors.
var (
	// ErrEntityNotFound indicates the entity does not exist in the scene.
	ErrEntityNotFound = errors.New("scene: entity not found")

	// ErrEntityExists indicates an entity with the same ID is already present.
	ErrEntityExists = errors.New("scene: entity already exists")

	// ErrCycle indicates a reparent that would make an entity its own ancestor.
	ErrCycle = errors.New("scene: reparent would create a cycle")

	// ErrEmptyName indicates an entity name is empty.
	ErrEmptyName = errors.New("scene: entity name is empty")

	// ErrDragEnded indicates a drag was used after End.
	ErrDragEnded = errors.New("scene: drag already ended")

	// ErrDragRecorded indicates a drag update after the transaction holding
	// the drag completed.
	ErrDragRecorded = errors.New("scene: drag transaction already completed")
)
