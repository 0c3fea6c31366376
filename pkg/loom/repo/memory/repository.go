// Package memory provides an in-memory loom.Repository, used by tests and
// single-process deployments.
package memory

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/loomcms/loom/pkg/loom"
)

// Repository implements loom.Repository using in-memory storage
type Repository struct {
	mu           sync.RWMutex
	contentTypes map[string]*loom.ContentType
	entries      map[string]map[uuid.UUID]*loom.Entry // typeID -> id -> entry
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		contentTypes: make(map[string]*loom.ContentType),
		entries:      make(map[string]map[uuid.UUID]*loom.Entry),
	}
}

// Content type operations

func (r *Repository) CreateContentType(ctx context.Context, ct *loom.ContentType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.contentTypes[ct.APIID]; exists {
		return fmt.Errorf("%w: %s", loom.ErrContentTypeExists, ct.APIID)
	}

	ctCopy := *ct
	r.contentTypes[ct.APIID] = &ctCopy
	r.entries[ct.APIID] = make(map[uuid.UUID]*loom.Entry)
	return nil
}

func (r *Repository) GetContentType(ctx context.Context, apiID string) (*loom.ContentType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ct, exists := r.contentTypes[apiID]
	if !exists {
		return nil, loom.ErrContentTypeNotFound
	}
	ctCopy := *ct
	return &ctCopy, nil
}

func (r *Repository) ListContentTypes(ctx context.Context) ([]*loom.ContentType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*loom.ContentType, 0, len(r.contentTypes))
	for _, ct := range r.contentTypes {
		ctCopy := *ct
		result = append(result, &ctCopy)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].APIID < result[j].APIID
	})
	return result, nil
}

func (r *Repository) UpdateContentType(ctx context.Context, apiID string, ct *loom.ContentType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.contentTypes[apiID]; !exists {
		return loom.ErrContentTypeNotFound
	}

	if ct.APIID != apiID {
		if _, taken := r.contentTypes[ct.APIID]; taken {
			return fmt.Errorf("%w: %s", loom.ErrContentTypeExists, ct.APIID)
		}
		// Move the definition and its entries under the new apiID.
		byID := r.entries[apiID]
		delete(r.contentTypes, apiID)
		delete(r.entries, apiID)
		for _, e := range byID {
			e.TypeID = ct.APIID
		}
		r.entries[ct.APIID] = byID
	}

	ctCopy := *ct
	r.contentTypes[ct.APIID] = &ctCopy
	if r.entries[ct.APIID] == nil {
		r.entries[ct.APIID] = make(map[uuid.UUID]*loom.Entry)
	}
	return nil
}

func (r *Repository) DeleteContentType(ctx context.Context, apiID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.contentTypes[apiID]; !exists {
		return loom.ErrContentTypeNotFound
	}
	delete(r.contentTypes, apiID)
	delete(r.entries, apiID)
	return nil
}

// Entry operations

func (r *Repository) CreateEntry(ctx context.Context, entry *loom.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	byID, exists := r.entries[entry.TypeID]
	if !exists {
		return loom.ErrContentTypeNotFound
	}
	byID[entry.ID] = entry.Clone()
	return nil
}

func (r *Repository) GetEntry(ctx context.Context, typeID string, id uuid.UUID) (*loom.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byID, exists := r.entries[typeID]
	if !exists {
		return nil, loom.ErrContentTypeNotFound
	}
	entry, exists := byID[id]
	if !exists {
		return nil, loom.ErrEntryNotFound
	}
	return entry.Clone(), nil
}

func (r *Repository) UpdateEntry(ctx context.Context, entry *loom.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	byID, exists := r.entries[entry.TypeID]
	if !exists {
		return loom.ErrContentTypeNotFound
	}
	if _, exists := byID[entry.ID]; !exists {
		return loom.ErrEntryNotFound
	}
	byID[entry.ID] = entry.Clone()
	return nil
}

func (r *Repository) DeleteEntry(ctx context.Context, typeID string, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	byID, exists := r.entries[typeID]
	if !exists {
		return loom.ErrContentTypeNotFound
	}
	if _, exists := byID[id]; !exists {
		return loom.ErrEntryNotFound
	}
	delete(byID, id)
	return nil
}

func (r *Repository) ListEntries(ctx context.Context, params loom.ListEntriesParams) ([]*loom.Entry, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byID, exists := r.entries[params.TypeID]
	if !exists {
		return nil, 0, loom.ErrContentTypeNotFound
	}

	matched := make([]*loom.Entry, 0, len(byID))
	for _, entry := range byID {
		if params.Search == "" || matchesSearch(entry, params.Search, params.SearchFields) {
			matched = append(matched, entry)
		}
	}

	sortEntries(matched, params.SortField, params.SortDesc)
	total := len(matched)

	start := params.Offset
	if start > total {
		start = total
	}
	end := total
	if params.Limit > 0 && start+params.Limit < end {
		end = start + params.Limit
	}

	page := make([]*loom.Entry, 0, end-start)
	for _, entry := range matched[start:end] {
		page = append(page, entry.Clone())
	}
	return page, total, nil
}

func (r *Repository) DeleteEntriesByType(ctx context.Context, typeID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	byID, exists := r.entries[typeID]
	if !exists {
		return 0, nil
	}
	removed := len(byID)
	r.entries[typeID] = make(map[uuid.UUID]*loom.Entry)
	return removed, nil
}

func (r *Repository) CountEntriesWithValue(ctx context.Context, typeID, field string, value interface{}, excludeID *uuid.UUID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byID, exists := r.entries[typeID]
	if !exists {
		return 0, loom.ErrContentTypeNotFound
	}

	count := 0
	for id, entry := range byID {
		if excludeID != nil && id == *excludeID {
			continue
		}
		stored, present := entry.Data[field]
		if present && reflect.DeepEqual(stored, value) {
			count++
		}
	}
	return count, nil
}

// matchesSearch reports whether any of the entry's string fields contains
// the term, case-insensitively.
func matchesSearch(entry *loom.Entry, term string, fields []string) bool {
	needle := strings.ToLower(term)
	for _, field := range fields {
		if s, ok := entry.Data[field].(string); ok {
			if strings.Contains(strings.ToLower(s), needle) {
				return true
			}
		}
	}
	return false
}

// sortEntries orders entries by the requested field. System timestamps sort
// chronologically; data fields compare as strings. Ties break on ID so the
// order is stable across calls.
func sortEntries(entries []*loom.Entry, field string, desc bool) {
	less := func(i, j int) bool {
		a, b := entries[i], entries[j]
		switch field {
		case "", "created_at":
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		case "updated_at":
			if !a.UpdatedAt.Equal(b.UpdatedAt) {
				return a.UpdatedAt.Before(b.UpdatedAt)
			}
		case "state":
			if a.State != b.State {
				return a.State < b.State
			}
		default:
			av := fmt.Sprint(a.Data[field])
			bv := fmt.Sprint(b.Data[field])
			if av != bv {
				return av < bv
			}
		}
		return a.ID.String() < b.ID.String()
	}
	sort.Slice(entries, func(i, j int) bool {
		if desc {
			return less(j, i)
		}
		return less(i, j)
	})
}
