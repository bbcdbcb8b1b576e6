// Package script runs Lua editing scripts against a scene and its history.
//
// Scripts see two global modules:
//
//	scene    - create, delete, rename, reparent and transform entities
//	history  - group edits into transactions, undo, redo, checkpoints
//
// Every edit a script makes goes through the scene editor and is therefore
// recorded on the history stack. Edits made inside history.transaction or
// between history.begin and history.commit form one undoable step:
//
//	history.transaction("Build rig", function()
//	    local root = scene.create("Rig")
//	    local arm = scene.create("Arm", root)
//	    scene.move(arm, 0, 2, 0)
//	end)
//	history.undo() -- removes Rig and Arm together
//
// # Threading
//
// gopher-lua states are not goroutine-safe, and the history stack admits a
// single execution context. Host methods must therefore run on one
// goroutine; Executor provides that goroutine for callers that have many.
//
// # Sandbox
//
// Only the base, table, string and math libraries are opened. dofile,
// loadfile, load, loadstring, require and module are removed.
package script
