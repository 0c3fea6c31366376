package loom

import (
	"context"
)

// Service is the main interface of the loom library: the schema registry and
// the generic CRUD/workflow engine over compiled models.
type Service interface {
	// Schema registry operations
	DefineContentType(ctx context.Context, req DefineContentTypeRequest) (*ContentType, error)
	GetContentType(ctx context.Context, apiID string) (*ContentType, error)
	ListContentTypes(ctx context.Context) ([]*ContentType, error)
	ReplaceContentType(ctx context.Context, apiID string, req DefineContentTypeRequest) (*ContentType, error)
	DeleteContentType(ctx context.Context, apiID string) error

	// Generic CRUD operations
	CreateEntry(ctx context.Context, req CreateEntryRequest) (*Entry, error)
	GetEntry(ctx context.Context, typeID, entryID string) (*Entry, error)
	ListEntries(ctx context.Context, req ListEntriesRequest) (*EntryList, error)
	UpdateEntry(ctx context.Context, req UpdateEntryRequest) (*Entry, error)
	DeleteEntry(ctx context.Context, req DeleteEntryRequest) error

	// Workflow operations
	ChangeEntryState(ctx context.Context, req ChangeEntryStateRequest) (*Entry, error)
}
