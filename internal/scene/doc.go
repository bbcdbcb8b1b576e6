// Package scene is the host model mutated by editing sessions: a tree of
// named entities with transforms.
//
// Scene holds the data and knows nothing about history. Editor performs
// mutations through reversible operations and records them on a
// history.Stack, either into the caller's open transaction or into a
// transaction of their own.
//
//	sc := scene.New()
//	ed := scene.NewEditor(sc, stack, ctx)
//	id, _ := ed.Create("Cube", uuid.Nil)
//	_ = ed.Move(id, scene.Vec3{X: 1})
//	_ = stack.Undo(ctx) // the cube returns to the origin
//
// Gizmo drags update an entity continuously without recording each step;
// the final transform is captured when the drag's transaction completes.
package scene
