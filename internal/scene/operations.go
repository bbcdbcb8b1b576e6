package scene

import (
	"fmt"

	"github.com/google/uuid"
)

// operation is a reversible scene edit. apply performs the edit the first
// time and on rollforward; revert undoes it.
type operation interface {
	apply() error
	revert() error
	Rollback() error
	Rollforward() error
	Description() string
}

// CreateOperation adds an entity to the scene.
type CreateOperation struct {
	scene  *Scene
	entity *Entity
	index  int
}

func newCreateOperation(s *Scene, e *Entity) *CreateOperation {
	return &CreateOperation{scene: s, entity: e, index: -1}
}

func (op *CreateOperation) apply() error {
	if err := op.scene.attach(op.entity, op.index, nil); err != nil {
		return err
	}
	if op.index < 0 {
		list, _ := op.scene.siblings(op.entity.Parent)
		op.index = len(*list) - 1
	}
	return nil
}

func (op *CreateOperation) revert() error {
	_, _, _, err := op.scene.detach(op.entity.ID)
	return err
}

// Rollback removes the created entity.
func (op *CreateOperation) Rollback() error { return op.revert() }

// Rollforward adds the entity back at its original position.
func (op *CreateOperation) Rollforward() error { return op.apply() }

// Description returns a human-readable description.
func (op *CreateOperation) Description() string {
	return fmt.Sprintf("Create %q", op.entity.Name)
}

// DeleteOperation removes an entity and its descendants.
type DeleteOperation struct {
	scene       *Scene
	id          uuid.UUID
	entity      *Entity
	index       int
	descendants []*Entity
}

func newDeleteOperation(s *Scene, id uuid.UUID) *DeleteOperation {
	return &DeleteOperation{scene: s, id: id}
}

func (op *DeleteOperation) apply() error {
	e, index, descendants, err := op.scene.detach(op.id)
	if err != nil {
		return err
	}
	op.entity, op.index, op.descendants = e, index, descendants
	return nil
}

func (op *DeleteOperation) revert() error {
	if op.entity == nil {
		return fmt.Errorf("restore %s: %w", op.id, ErrEntityNotFound)
	}
	return op.scene.attach(op.entity, op.index, op.descendants)
}

// Rollback restores the deleted subtree.
func (op *DeleteOperation) Rollback() error { return op.revert() }

// Rollforward deletes the subtree again.
func (op *DeleteOperation) Rollforward() error { return op.apply() }

// Description returns a human-readable description.
func (op *DeleteOperation) Description() string {
	if op.entity != nil {
		return fmt.Sprintf("Delete %q", op.entity.Name)
	}
	return "Delete entity"
}

// RenameOperation changes an entity name.
type RenameOperation struct {
	scene   *Scene
	id      uuid.UUID
	oldName string
	newName string
}

func (op *RenameOperation) apply() error {
	old, err := op.scene.setName(op.id, op.newName)
	if err != nil {
		return err
	}
	op.oldName = old
	return nil
}

func (op *RenameOperation) revert() error {
	_, err := op.scene.setName(op.id, op.oldName)
	return err
}

// Rollback restores the old name.
func (op *RenameOperation) Rollback() error { return op.revert() }

// Rollforward sets the new name again.
func (op *RenameOperation) Rollforward() error { return op.apply() }

// Description returns a human-readable description.
func (op *RenameOperation) Description() string {
	return fmt.Sprintf("Rename %q to %q", op.oldName, op.newName)
}

// ReparentOperation moves an entity under a new parent.
type ReparentOperation struct {
	scene     *Scene
	id        uuid.UUID
	newParent uuid.UUID
	oldParent uuid.UUID
	oldIndex  int
}

func (op *ReparentOperation) apply() error {
	parent, index, err := op.scene.move(op.id, op.newParent, -1)
	if err != nil {
		return err
	}
	op.oldParent, op.oldIndex = parent, index
	return nil
}

func (op *ReparentOperation) revert() error {
	_, _, err := op.scene.move(op.id, op.oldParent, op.oldIndex)
	return err
}

// Rollback moves the entity back to its old parent and position.
func (op *ReparentOperation) Rollback() error { return op.revert() }

// Rollforward moves the entity under the new parent again.
func (op *ReparentOperation) Rollforward() error { return op.apply() }

// Description returns a human-readable description.
func (op *ReparentOperation) Description() string {
	return "Reparent entity"
}

// TransformOperation records a transform change.
type TransformOperation struct {
	scene  *Scene
	id     uuid.UUID
	label  string
	before Transform
	after  Transform
}

func (op *TransformOperation) apply() error {
	before, err := op.scene.setTransform(op.id, op.after)
	if err != nil {
		return err
	}
	op.before = before
	return nil
}

func (op *TransformOperation) revert() error {
	_, err := op.scene.setTransform(op.id, op.before)
	return err
}

// Rollback restores the previous transform.
func (op *TransformOperation) Rollback() error { return op.revert() }

// Rollforward applies the new transform again.
func (op *TransformOperation) Rollforward() error { return op.apply() }

// Description returns a human-readable description.
func (op *TransformOperation) Description() string {
	return op.label
}

// DragOperation records a gizmo drag. The entity is updated live while the
// drag runs; the final transform is captured by FreezeContent.
type DragOperation struct {
	scene  *Scene
	id     uuid.UUID
	before Transform
	after  Transform
}

// FreezeContent snapshots the entity's transform at completion time.
func (op *DragOperation) FreezeContent() {
	if e, ok := op.scene.entities[op.id]; ok {
		op.after = e.Transform
	} else {
		op.after = op.before
	}
}

// Rollback restores the transform from before the drag.
func (op *DragOperation) Rollback() error {
	_, err := op.scene.setTransform(op.id, op.before)
	return err
}

// Rollforward reapplies the final drag transform.
func (op *DragOperation) Rollforward() error {
	_, err := op.scene.setTransform(op.id, op.after)
	return err
}

// Description returns a human-readable description.
func (op *DragOperation) Description() string {
	return "Drag entity"
}
