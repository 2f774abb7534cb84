package port

import "context"

// EventLedger remembers provider events that were fully processed.
type EventLedger interface {
	// EventProcessed reports whether eventID was recorded by MarkEventProcessed
	EventProcessed(ctx context.Context, eventID string) (bool, error)

	// MarkEventProcessed records eventID once its effects are stored
	MarkEventProcessed(ctx context.Context, eventID string) error
}
