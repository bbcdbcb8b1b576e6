package script

import (
	"github.com/google/uuid"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/scenetx/internal/scene"
)

// checkID reads argument n as an entity ID.
func checkID(L *lua.LState, n int) uuid.UUID {
	s := L.CheckString(n)
	id, err := uuid.Parse(s)
	if err != nil {
		L.ArgError(n, "invalid entity id "+s)
	}
	return id
}

// optParent reads optional argument n as a parent ID; nil or absent is the
// scene root.
func optParent(L *lua.LState, n int) uuid.UUID {
	if L.Get(n) == lua.LNil {
		return uuid.Nil
	}
	return checkID(L, n)
}

// checkVec3 reads three numeric arguments starting at n.
func checkVec3(L *lua.LState, n int) scene.Vec3 {
	return scene.Vec3{
		X: float64(L.CheckNumber(n)),
		Y: float64(L.CheckNumber(n + 1)),
		Z: float64(L.CheckNumber(n + 2)),
	}
}

func vec3ToTable(L *lua.LState, v scene.Vec3) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("x", lua.LNumber(v.X))
	t.RawSetString("y", lua.LNumber(v.Y))
	t.RawSetString("z", lua.LNumber(v.Z))
	return t
}

func idToValue(id uuid.UUID) lua.LValue {
	if id == uuid.Nil {
		return lua.LNil
	}
	return lua.LString(id.String())
}

func idsToTable(L *lua.LState, ids []uuid.UUID) *lua.LTable {
	t := L.CreateTable(len(ids), 0)
	for _, id := range ids {
		t.Append(lua.LString(id.String()))
	}
	return t
}

func entityToTable(L *lua.LState, e scene.Entity) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("id", lua.LString(e.ID.String()))
	t.RawSetString("name", lua.LString(e.Name))
	t.RawSetString("parent", idToValue(e.Parent))
	t.RawSetString("position", vec3ToTable(L, e.Transform.Position))
	t.RawSetString("rotation", vec3ToTable(L, e.Transform.Rotation))
	t.RawSetString("scale", vec3ToTable(L, e.Transform.Scale))
	t.RawSetString("children", idsToTable(L, e.Children))
	return t
}
