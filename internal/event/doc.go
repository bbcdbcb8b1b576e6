// Package event provides the in-process notification bus for scenetx.
//
// History changes, configuration reloads and script lifecycle events are
// published on hierarchical topics so that loggers, scripts and tests can
// observe the session without holding references to the history stack.
//
// # Event Topics
//
// Topics use dot notation:
//
//	history.completed    - A top-level transaction entered the done-list
//	history.undone       - A transaction was rolled back
//	history.redone       - A transaction was rolled forward
//	history.discarded    - A transaction left the history without replay
//	history.cleared      - All history was dropped
//	config.reloaded      - The config file changed and was applied
//
// # Wildcard Patterns
//
//	history.*     - matches history.completed, history.undone (single segment)
//	history.**    - matches history and everything below it
//
// # Delivery
//
// Delivery is synchronous, in subscription order, on the publisher's
// goroutine. History notifications are published from inside stack calls,
// so handlers must not call back into the stack.
//
// # Basic Usage
//
//	bus := event.NewBus()
//	sub, _ := bus.Subscribe("history.**", func(ctx context.Context, ev event.Event) error {
//	    fmt.Println(ev.Topic)
//	    return nil
//	})
//	defer bus.Unsubscribe(sub)
package event
