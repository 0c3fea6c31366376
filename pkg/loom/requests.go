package loom

// Request/Response DTOs

// DefineContentTypeRequest contains a full content type definition. The same
// request shape serves both define and replace; replacement is always by
// whole definition, there is no partial field patch.
type DefineContentTypeRequest struct {
	APIID       string
	DisplayName string
	Description string
	Fields      []Field
}

// CreateEntryRequest contains parameters for creating an entry.
type CreateEntryRequest struct {
	TypeID string
	Data   map[string]interface{}
	Actor  Actor
}

// UpdateEntryRequest contains parameters for updating an entry. Data is
// merged over the stored entry; a "state" key is routed through the workflow
// state machine rather than stored verbatim.
type UpdateEntryRequest struct {
	TypeID  string
	EntryID string
	Data    map[string]interface{}
	Actor   Actor
}

// DeleteEntryRequest contains parameters for deleting an entry.
type DeleteEntryRequest struct {
	TypeID  string
	EntryID string
	Actor   Actor
}

// ChangeEntryStateRequest contains parameters for an explicit workflow
// transition.
type ChangeEntryStateRequest struct {
	TypeID  string
	EntryID string
	State   EntryState
	Actor   Actor
}

// ListEntriesRequest contains parameters for listing entries. Page and Limit
// are 1-based; zero values take the defaults (page 1, limit 10).
type ListEntriesRequest struct {
	TypeID string
	Page   int
	Limit  int
	Search string
	Sort   string
}

// EntryList is the result of a list operation. TotalCount is the number of
// matching entries before pagination so callers can compute page counts.
type EntryList struct {
	Entries    []*Entry `json:"entries"`
	TotalCount int      `json:"total_count"`
}
