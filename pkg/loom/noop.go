package loom

import (
	"context"

	"github.com/google/uuid"
)

// noopAuditSink discards all audit events.
type noopAuditSink struct{}

// NewNoopAuditSink returns an AuditSink that discards every event.
func NewNoopAuditSink() AuditSink {
	return noopAuditSink{}
}

func (noopAuditSink) ContentTypeDefined(ctx context.Context, ct *ContentType) error {
	return nil
}

func (noopAuditSink) ContentTypeReplaced(ctx context.Context, ct *ContentType) error {
	return nil
}

func (noopAuditSink) ContentTypeRemoved(ctx context.Context, apiID string, entriesRemoved int) error {
	return nil
}

func (noopAuditSink) EntryCreated(ctx context.Context, entry *Entry) error {
	return nil
}

func (noopAuditSink) EntryUpdated(ctx context.Context, entry *Entry) error {
	return nil
}

func (noopAuditSink) EntryDeleted(ctx context.Context, typeID string, id uuid.UUID, actor Actor) error {
	return nil
}

func (noopAuditSink) EntryStateChanged(ctx context.Context, entry *Entry, previous EntryState) error {
	return nil
}

// noopMediaResolver treats every media identifier as existing. It stands in
// when no external media collaborator is wired up.
type noopMediaResolver struct{}

// NewNoopMediaResolver returns a MediaResolver that accepts every identifier.
func NewNoopMediaResolver() MediaResolver {
	return noopMediaResolver{}
}

func (noopMediaResolver) MediaExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return true, nil
}
