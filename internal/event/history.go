package event

import (
	"context"

	"github.com/google/uuid"

	"github.com/dshills/scenetx/internal/engine/history"
)

// HistoryChange is the payload of history.* events.
type HistoryChange struct {
	Kind          history.NotificationKind
	TransactionID uuid.UUID
	Description   string
	Operations    int
	Reason        history.DiscardReason
	Err           error
	UndoCount     int
	RedoCount     int
}

// HistoryBridge republishes stack notifications on the bus.
// It implements history.Listener.
type HistoryBridge struct {
	bus     *Bus
	source  string
	onError func(error)
}

// NewHistoryBridge creates a bridge publishing on bus. onError, if non-nil,
// receives handler failures since a history listener cannot return errors.
func NewHistoryBridge(bus *Bus, source string, onError func(error)) *HistoryBridge {
	return &HistoryBridge{bus: bus, source: source, onError: onError}
}

// HistoryChanged implements history.Listener.
func (h *HistoryBridge) HistoryChanged(n history.Notification) {
	change := HistoryChange{
		Kind:      n.Kind,
		Reason:    n.Reason,
		Err:       n.Err,
		UndoCount: n.UndoCount,
		RedoCount: n.RedoCount,
	}
	if n.Transaction != nil {
		change.TransactionID = n.Transaction.ID()
		change.Description = n.Transaction.Description()
		change.Operations = n.Transaction.Len()
	}

	err := h.bus.Publish(context.Background(), New(HistoryTopic(n.Kind), change, h.source))
	if err != nil && h.onError != nil {
		h.onError(err)
	}
}

// HistoryTopic maps a notification kind to its topic.
func HistoryTopic(kind history.NotificationKind) Topic {
	switch kind {
	case history.NotifyCompleted:
		return TopicHistoryCompleted
	case history.NotifyUndone:
		return TopicHistoryUndone
	case history.NotifyRedone:
		return TopicHistoryRedone
	case history.NotifyDiscarded:
		return TopicHistoryDiscarded
	case history.NotifyCleared:
		return TopicHistoryCleared
	default:
		return Topic("history").Child(kind.String())
	}
}
