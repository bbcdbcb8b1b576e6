// Package app wires a scenetx editing session: configuration, logging, the
// history stack, the scene editor, the event bus and the Lua script host.
//
// A Session owns one history execution context. Everything that touches
// the stack or the scene runs on the session's executor goroutine; other
// goroutines (the CLI, the config watcher) submit work to it.
package app
