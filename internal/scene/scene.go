package scene

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// Vec3 is a three-component vector.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// String formats the vector as "(x, y, z)".
func (v Vec3) String() string {
	return fmt.Sprintf("(%g, %g, %g)", v.X, v.Y, v.Z)
}

// Transform is an entity's local placement. Rotation is Euler angles in
// degrees.
type Transform struct {
	Position Vec3
	Rotation Vec3
	Scale    Vec3
}

// IdentityTransform returns the transform of a freshly created entity.
func IdentityTransform() Transform {
	return Transform{Scale: Vec3{X: 1, Y: 1, Z: 1}}
}

// Entity is a node of the scene tree.
type Entity struct {
	ID        uuid.UUID
	Name      string
	Parent    uuid.UUID // uuid.Nil for root entities
	Transform Transform
	Children  []uuid.UUID
}

// Scene is a tree of entities. The zero parent (uuid.Nil) is the implicit
// scene root. Scene is not safe for concurrent use; it is owned by the same
// execution context as its history stack.
type Scene struct {
	entities map[uuid.UUID]*Entity
	roots    []uuid.UUID
}

// New creates an empty scene.
func New() *Scene {
	return &Scene{entities: make(map[uuid.UUID]*Entity)}
}

// Len returns the number of entities.
func (s *Scene) Len() int {
	return len(s.entities)
}

// Has reports whether id is in the scene.
func (s *Scene) Has(id uuid.UUID) bool {
	_, ok := s.entities[id]
	return ok
}

// Get returns a copy of the entity.
func (s *Scene) Get(id uuid.UUID) (Entity, bool) {
	e, ok := s.entities[id]
	if !ok {
		return Entity{}, false
	}
	c := *e
	c.Children = slices.Clone(e.Children)
	return c, true
}

// Roots returns the top-level entity IDs in order.
func (s *Scene) Roots() []uuid.UUID {
	return slices.Clone(s.roots)
}

// Children returns the child IDs of parent in order. uuid.Nil yields roots.
func (s *Scene) Children(parent uuid.UUID) []uuid.UUID {
	if parent == uuid.Nil {
		return s.Roots()
	}
	if e, ok := s.entities[parent]; ok {
		return slices.Clone(e.Children)
	}
	return nil
}

// Find returns the IDs of entities with the given name, in tree order.
func (s *Scene) Find(name string) []uuid.UUID {
	var ids []uuid.UUID
	s.Walk(func(e Entity, _ int) bool {
		if e.Name == name {
			ids = append(ids, e.ID)
		}
		return true
	})
	return ids
}

// Walk visits entities depth-first in tree order. Returning false from fn
// skips the entity's children.
func (s *Scene) Walk(fn func(e Entity, depth int) bool) {
	var visit func(ids []uuid.UUID, depth int)
	visit = func(ids []uuid.UUID, depth int) {
		for _, id := range ids {
			e := s.entities[id]
			if e == nil {
				continue
			}
			if fn(*e, depth) {
				visit(e.Children, depth+1)
			}
		}
	}
	visit(s.roots, 0)
}

// WorldPosition returns the entity position with all ancestor translations
// applied.
func (s *Scene) WorldPosition(id uuid.UUID) (Vec3, error) {
	e, ok := s.entities[id]
	if !ok {
		return Vec3{}, ErrEntityNotFound
	}
	pos := e.Transform.Position
	for p := e.Parent; p != uuid.Nil; {
		parent := s.entities[p]
		pos = pos.Add(parent.Transform.Position)
		p = parent.Parent
	}
	return pos, nil
}

// siblings returns a pointer to the child list holding entities of parent.
func (s *Scene) siblings(parent uuid.UUID) (*[]uuid.UUID, error) {
	if parent == uuid.Nil {
		return &s.roots, nil
	}
	p, ok := s.entities[parent]
	if !ok {
		return nil, fmt.Errorf("parent %s: %w", parent, ErrEntityNotFound)
	}
	return &p.Children, nil
}

// attach inserts the subtree rooted at e under e.Parent at index. A
// negative or out of range index appends. Descendants are registered too.
func (s *Scene) attach(e *Entity, index int, subtree []*Entity) error {
	if _, ok := s.entities[e.ID]; ok {
		return fmt.Errorf("attach %s: %w", e.ID, ErrEntityExists)
	}
	list, err := s.siblings(e.Parent)
	if err != nil {
		return err
	}
	if index < 0 || index > len(*list) {
		index = len(*list)
	}
	*list = slices.Insert(*list, index, e.ID)
	s.entities[e.ID] = e
	for _, d := range subtree {
		s.entities[d.ID] = d
	}
	return nil
}

// detach removes the subtree rooted at id. It returns the root, its former
// index among its siblings, and its descendants in tree order.
func (s *Scene) detach(id uuid.UUID) (*Entity, int, []*Entity, error) {
	e, ok := s.entities[id]
	if !ok {
		return nil, 0, nil, fmt.Errorf("detach %s: %w", id, ErrEntityNotFound)
	}
	list, err := s.siblings(e.Parent)
	if err != nil {
		return nil, 0, nil, err
	}
	index := slices.Index(*list, id)
	if index >= 0 {
		*list = slices.Delete(*list, index, index+1)
	}
	descendants := s.descendants(e)
	delete(s.entities, id)
	for _, d := range descendants {
		delete(s.entities, d.ID)
	}
	return e, index, descendants, nil
}

func (s *Scene) descendants(e *Entity) []*Entity {
	var result []*Entity
	for _, cid := range e.Children {
		if c := s.entities[cid]; c != nil {
			result = append(result, c)
			result = append(result, s.descendants(c)...)
		}
	}
	return result
}

// isAncestor reports whether anc is id or one of its ancestors.
func (s *Scene) isAncestor(anc, id uuid.UUID) bool {
	for cur := id; cur != uuid.Nil; {
		if cur == anc {
			return true
		}
		e := s.entities[cur]
		if e == nil {
			return false
		}
		cur = e.Parent
	}
	return false
}

// move relocates id under parent at index and returns its previous parent
// and index.
func (s *Scene) move(id, parent uuid.UUID, index int) (uuid.UUID, int, error) {
	e, ok := s.entities[id]
	if !ok {
		return uuid.Nil, 0, fmt.Errorf("move %s: %w", id, ErrEntityNotFound)
	}
	if parent != uuid.Nil && s.isAncestor(id, parent) {
		return uuid.Nil, 0, ErrCycle
	}
	dst, err := s.siblings(parent)
	if err != nil {
		return uuid.Nil, 0, err
	}
	src, _ := s.siblings(e.Parent)
	oldParent := e.Parent
	oldIndex := slices.Index(*src, id)
	if oldIndex >= 0 {
		*src = slices.Delete(*src, oldIndex, oldIndex+1)
	}
	if index < 0 || index > len(*dst) {
		index = len(*dst)
	}
	*dst = slices.Insert(*dst, index, id)
	e.Parent = parent
	return oldParent, oldIndex, nil
}

func (s *Scene) setName(id uuid.UUID, name string) (string, error) {
	e, ok := s.entities[id]
	if !ok {
		return "", fmt.Errorf("rename %s: %w", id, ErrEntityNotFound)
	}
	old := e.Name
	e.Name = name
	return old, nil
}

func (s *Scene) setTransform(id uuid.UUID, t Transform) (Transform, error) {
	e, ok := s.entities[id]
	if !ok {
		return Transform{}, fmt.Errorf("transform %s: %w", id, ErrEntityNotFound)
	}
	old := e.Transform
	e.Transform = t
	return old, nil
}
