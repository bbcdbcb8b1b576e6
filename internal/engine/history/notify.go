package history

// NotificationKind identifies a history change.
type NotificationKind int

const (
	// NotifyCompleted reports a top-level transaction entering the done-list.
	NotifyCompleted NotificationKind = iota
	// NotifyUndone reports a transaction rolled back by Undo.
	NotifyUndone
	// NotifyRedone reports a transaction rolled forward by Redo.
	NotifyRedone
	// NotifyDiscarded reports a transaction dropped from history.
	NotifyDiscarded
	// NotifyCleared reports that Clear emptied the history.
	NotifyCleared
)

// String returns the notification kind name.
func (k NotificationKind) String() string {
	switch k {
	case NotifyCompleted:
		return "completed"
	case NotifyUndone:
		return "undone"
	case NotifyRedone:
		return "redone"
	case NotifyDiscarded:
		return "discarded"
	case NotifyCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// DiscardReason explains why a transaction left the history.
type DiscardReason int

const (
	// DiscardNone is the zero value for non-discard notifications.
	DiscardNone DiscardReason = iota
	// DiscardEvicted means the done-list exceeded its capacity.
	DiscardEvicted
	// DiscardTruncated means a new transaction cut off the redo branch.
	DiscardTruncated
	// DiscardCleared means Clear was called.
	DiscardCleared
)

// String returns the discard reason name.
func (r DiscardReason) String() string {
	switch r {
	case DiscardNone:
		return "none"
	case DiscardEvicted:
		return "evicted"
	case DiscardTruncated:
		return "truncated"
	case DiscardCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// Notification describes one history change. UndoCount and RedoCount are
// the list depths after the change.
type Notification struct {
	Kind        NotificationKind
	Transaction ReadOnlyTransaction
	Reason      DiscardReason
	Err         error
	UndoCount   int
	RedoCount   int
}

// Listener observes history changes. It is called synchronously on the
// owner's execution context and must not mutate the stack.
type Listener interface {
	HistoryChanged(n Notification)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(n Notification)

// HistoryChanged calls f(n).
func (f ListenerFunc) HistoryChanged(n Notification) {
	f(n)
}
