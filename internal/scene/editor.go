package scene

import (
	"errors"
	"fmt"

	"github.com/dshills/scenetx/internal/engine/history"
	"github.com/google/uuid"
)

// Editor applies scene edits and records them on a history stack.
//
// When a transaction is open on the stack, edits are pushed into its
// innermost transaction. Otherwise each edit is recorded as its own
// single-operation transaction.
type Editor struct {
	scene *Scene
	stack *history.Stack
	ctx   *history.Context
}

// NewEditor creates an editor for sc recording on stack as ctx.
func NewEditor(sc *Scene, stack *history.Stack, ctx *history.Context) *Editor {
	return &Editor{scene: sc, stack: stack, ctx: ctx}
}

// Scene returns the edited scene.
func (e *Editor) Scene() *Scene {
	return e.scene
}

// Stack returns the history stack.
func (e *Editor) Stack() *history.Stack {
	return e.stack
}

// Context returns the execution context edits are recorded under.
func (e *Editor) Context() *history.Context {
	return e.ctx
}

// perform applies op and records it. If recording is rejected the edit is
// reverted, so the scene never holds unrecorded changes.
func (e *Editor) perform(op operation) error {
	if err := op.apply(); err != nil {
		return err
	}
	if err := e.record(op); err != nil {
		if revertErr := op.revert(); revertErr != nil {
			return errors.Join(err, revertErr)
		}
		return err
	}
	return nil
}

func (e *Editor) record(op operation) error {
	if e.stack.IsTransactionOpen() {
		return e.stack.PushOperation(e.ctx, op)
	}
	return e.stack.Do(e.ctx, op.Description(), func(tx *history.Transaction) error {
		return tx.PushOperation(e.ctx, op)
	})
}

// Create adds a new entity named name under parent (uuid.Nil for the scene
// root) and returns its ID.
func (e *Editor) Create(name string, parent uuid.UUID) (uuid.UUID, error) {
	if name == "" {
		return uuid.Nil, ErrEmptyName
	}
	ent := &Entity{
		ID:        uuid.New(),
		Name:      name,
		Parent:    parent,
		Transform: IdentityTransform(),
	}
	if err := e.perform(newCreateOperation(e.scene, ent)); err != nil {
		return uuid.Nil, err
	}
	return ent.ID, nil
}

// Delete removes the entity and its descendants.
func (e *Editor) Delete(id uuid.UUID) error {
	return e.perform(newDeleteOperation(e.scene, id))
}

// Rename changes the entity name.
func (e *Editor) Rename(id uuid.UUID, name string) error {
	if name == "" {
		return ErrEmptyName
	}
	return e.perform(&RenameOperation{scene: e.scene, id: id, newName: name})
}

// Reparent moves the entity under parent, appended after existing children.
func (e *Editor) Reparent(id, parent uuid.UUID) error {
	return e.perform(&ReparentOperation{scene: e.scene, id: id, newParent: parent})
}

// SetTransform replaces the entity transform.
func (e *Editor) SetTransform(id uuid.UUID, t Transform) error {
	return e.perform(&TransformOperation{scene: e.scene, id: id, label: "Transform entity", after: t})
}

// Move sets the entity position.
func (e *Editor) Move(id uuid.UUID, pos Vec3) error {
	return e.updateTransform(id, "Move", func(t *Transform) { t.Position = pos })
}

// Rotate sets the entity rotation.
func (e *Editor) Rotate(id uuid.UUID, rot Vec3) error {
	return e.updateTransform(id, "Rotate", func(t *Transform) { t.Rotation = rot })
}

// Scale sets the entity scale.
func (e *Editor) Scale(id uuid.UUID, scale Vec3) error {
	return e.updateTransform(id, "Scale", func(t *Transform) { t.Scale = scale })
}

func (e *Editor) updateTransform(id uuid.UUID, verb string, fn func(t *Transform)) error {
	ent, ok := e.scene.entities[id]
	if !ok {
		return fmt.Errorf("%s %s: %w", verb, id, ErrEntityNotFound)
	}
	t := ent.Transform
	fn(&t)
	return e.perform(&TransformOperation{
		scene: e.scene,
		id:    id,
		label: fmt.Sprintf("%s %q", verb, ent.Name),
		after: t,
	})
}

// Drag is a live gizmo manipulation of one entity.
type Drag struct {
	editor *Editor
	op     *DragOperation
	tx     *history.Transaction // transaction holding op
	scope  *history.Scope       // nil when recorded into a caller's transaction
	ended  bool
}

// BeginDrag starts a drag on id. The drag operation is pushed immediately;
// Update changes the entity without recording, and the transform at
// completion is what redo reapplies. If no transaction is open, the drag
// opens its own and End completes it.
func (e *Editor) BeginDrag(id uuid.UUID) (*Drag, error) {
	ent, ok := e.scene.entities[id]
	if !ok {
		return nil, fmt.Errorf("drag %s: %w", id, ErrEntityNotFound)
	}
	op := &DragOperation{scene: e.scene, id: id, before: ent.Transform}
	d := &Drag{editor: e, op: op}

	if e.stack.IsTransactionOpen() {
		d.tx = e.stack.Current()
		if err := e.stack.PushOperation(e.ctx, op); err != nil {
			return nil, err
		}
		return d, nil
	}

	scope, err := e.stack.Begin(e.ctx, fmt.Sprintf("Drag %q", ent.Name))
	if err != nil {
		return nil, err
	}
	if err := scope.Push(op); err != nil {
		return nil, errors.Join(err, scope.End())
	}
	d.scope = scope
	d.tx = scope.Transaction()
	return d, nil
}

// Update sets the live transform of the dragged entity. Once the
// transaction holding the drag has completed, its final transform is frozen
// and Update fails with ErrDragRecorded.
func (d *Drag) Update(t Transform) error {
	if d.ended {
		return ErrDragEnded
	}
	if d.tx.IsCompleted() {
		return ErrDragRecorded
	}
	_, err := d.editor.scene.setTransform(d.op.id, t)
	return err
}

// End finishes the drag, completing its own transaction if it opened one.
func (d *Drag) End() error {
	if d.ended {
		return ErrDragEnded
	}
	d.ended = true
	if d.scope != nil {
		return d.scope.End()
	}
	return nil
}
