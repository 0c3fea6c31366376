package loom

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for content type and entry persistence.
// Implementations are expected to be safe for concurrent use.
type Repository interface {
	// Content type definitions
	CreateContentType(ctx context.Context, ct *ContentType) error
	GetContentType(ctx context.Context, apiID string) (*ContentType, error)
	ListContentTypes(ctx context.Context) ([]*ContentType, error)
	// UpdateContentType replaces the definition currently stored under
	// apiID. When ct.APIID differs, the definition and its entries move to
	// the new apiID.
	UpdateContentType(ctx context.Context, apiID string, ct *ContentType) error
	DeleteContentType(ctx context.Context, apiID string) error

	// Entries
	CreateEntry(ctx context.Context, entry *Entry) error
	GetEntry(ctx context.Context, typeID string, id uuid.UUID) (*Entry, error)
	UpdateEntry(ctx context.Context, entry *Entry) error
	DeleteEntry(ctx context.Context, typeID string, id uuid.UUID) error
	ListEntries(ctx context.Context, params ListEntriesParams) ([]*Entry, int, error)

	// DeleteEntriesByType removes every entry of typeID and reports how
	// many were removed. Used by the content type deletion cascade.
	DeleteEntriesByType(ctx context.Context, typeID string) (int, error)

	// CountEntriesWithValue counts entries of typeID whose field equals
	// value, excluding excludeID when non-nil. Backs unique-field checks.
	CountEntriesWithValue(ctx context.Context, typeID, field string, value interface{}, excludeID *uuid.UUID) (int, error)
}

// ListEntriesParams are the storage-level listing parameters. SearchFields
// names the string-kind fields of the compiled model the search term is
// matched against (case-insensitive substring, OR across fields).
type ListEntriesParams struct {
	TypeID       string
	Search       string
	SearchFields []string
	SortField    string
	SortDesc     bool
	Limit        int
	Offset       int
}

// AuditSink receives a notification for every mutating operation. Sinks are
// best-effort: the service logs and swallows their errors, so a sink failure
// never fails a content operation.
type AuditSink interface {
	ContentTypeDefined(ctx context.Context, ct *ContentType) error
	ContentTypeReplaced(ctx context.Context, ct *ContentType) error
	ContentTypeRemoved(ctx context.Context, apiID string, entriesRemoved int) error
	EntryCreated(ctx context.Context, entry *Entry) error
	EntryUpdated(ctx context.Context, entry *Entry) error
	EntryDeleted(ctx context.Context, typeID string, id uuid.UUID, actor Actor) error
	EntryStateChanged(ctx context.Context, entry *Entry, previous EntryState) error
}

// MediaResolver answers whether a media identifier refers to an existing
// media item. Media storage itself is owned by an external collaborator.
type MediaResolver interface {
	MediaExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Settings exposes the system settings the workflow consults.
type Settings interface {
	// ContentApprovalRequired reports whether a standard actor's publish
	// request must be countersigned by a privileged reviewer.
	ContentApprovalRequired(ctx context.Context) bool
}

// StaticSettings is a Settings implementation backed by fixed values.
type StaticSettings struct {
	ContentApproval bool
}

// ContentApprovalRequired implements Settings.
func (s StaticSettings) ContentApprovalRequired(ctx context.Context) bool {
	return s.ContentApproval
}
