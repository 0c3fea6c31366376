// Package audit provides AuditSink implementations for the activity log
// write contract. Storage of activity records is owned by an external
// collaborator; this package only emits structured records toward it.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/loomcms/loom/pkg/loom"
)

// Event is one activity record as handed to the external activity log.
type Event struct {
	ID        uuid.UUID              `json:"id"`
	Action    string                 `json:"action"`
	TypeID    string                 `json:"type_id"`
	EntryID   uuid.UUID              `json:"entry_id,omitempty"`
	ActorID   uuid.UUID              `json:"actor_id,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// LogSink writes activity records as structured log lines. It satisfies
// loom.AuditSink and is the default production sink until a dedicated
// activity log service is attached.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink writing through logger. A nil logger uses
// slog.Default.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) emit(ctx context.Context, ev Event) error {
	ev.ID = uuid.New()
	ev.CreatedAt = time.Now().UTC()
	s.logger.InfoContext(ctx, "activity",
		"activity_id", ev.ID,
		"action", ev.Action,
		"type_id", ev.TypeID,
		"entry_id", ev.EntryID,
		"actor_id", ev.ActorID,
		"metadata", ev.Metadata,
	)
	return nil
}

func (s *LogSink) ContentTypeDefined(ctx context.Context, ct *loom.ContentType) error {
	return s.emit(ctx, Event{Action: "content_type.define", TypeID: ct.APIID})
}

func (s *LogSink) ContentTypeReplaced(ctx context.Context, ct *loom.ContentType) error {
	return s.emit(ctx, Event{Action: "content_type.replace", TypeID: ct.APIID})
}

func (s *LogSink) ContentTypeRemoved(ctx context.Context, apiID string, entriesRemoved int) error {
	return s.emit(ctx, Event{
		Action:   "content_type.remove",
		TypeID:   apiID,
		Metadata: map[string]interface{}{"entries_removed": entriesRemoved},
	})
}

func (s *LogSink) EntryCreated(ctx context.Context, entry *loom.Entry) error {
	return s.emit(ctx, Event{
		Action:  "entry.create",
		TypeID:  entry.TypeID,
		EntryID: entry.ID,
		ActorID: entry.CreatedBy,
	})
}

func (s *LogSink) EntryUpdated(ctx context.Context, entry *loom.Entry) error {
	return s.emit(ctx, Event{
		Action:  "entry.update",
		TypeID:  entry.TypeID,
		EntryID: entry.ID,
		ActorID: entry.CreatedBy,
	})
}

func (s *LogSink) EntryDeleted(ctx context.Context, typeID string, id uuid.UUID, actor loom.Actor) error {
	return s.emit(ctx, Event{
		Action:  "entry.delete",
		TypeID:  typeID,
		EntryID: id,
		ActorID: actor.ID,
	})
}

func (s *LogSink) EntryStateChanged(ctx context.Context, entry *loom.Entry, previous loom.EntryState) error {
	return s.emit(ctx, Event{
		Action:  "entry.state_change",
		TypeID:  entry.TypeID,
		EntryID: entry.ID,
		ActorID: entry.CreatedBy,
		Metadata: map[string]interface{}{
			"previous_state": string(previous),
			"new_state":      string(entry.State),
		},
	})
}
