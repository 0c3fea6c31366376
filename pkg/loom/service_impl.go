package loom

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// service implements the Service interface
type service struct {
	repository Repository
	registry   *ModelRegistry
	audit      AuditSink
	media      MediaResolver
	settings   Settings
	logger     *slog.Logger
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithAuditSink sets the audit sink for the service
func WithAuditSink(sink AuditSink) Option {
	return func(s *service) {
		s.audit = sink
	}
}

// WithMediaResolver sets the media resolver for the service
func WithMediaResolver(resolver MediaResolver) Option {
	return func(s *service) {
		s.media = resolver
	}
}

// WithSettings sets the system settings source for the service
func WithSettings(settings Settings) Option {
	return func(s *service) {
		s.settings = settings
	}
}

// WithLogger sets the logger used for swallowed audit failures
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// New creates a new service instance with the given options. It replays
// every stored content type definition through the model synthesizer so CRUD
// calls observe usable models immediately.
func New(ctx context.Context, options ...Option) (Service, error) {
	s := &service{
		registry: NewModelRegistry(),
		audit:    NewNoopAuditSink(),
		media:    NewNoopMediaResolver(),
		settings: StaticSettings{},
		logger:   slog.Default(),
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}

	types, err := s.repository.ListContentTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("replay content type definitions: %w", err)
	}
	for _, ct := range types {
		s.registry.Register(Compile(ct))
	}

	return s, nil
}

// Schema registry operations

func (s *service) DefineContentType(ctx context.Context, req DefineContentTypeRequest) (*ContentType, error) {
	if err := validateDefinition(req, s.registry.Has); err != nil {
		return nil, err
	}
	if s.registry.Has(req.APIID) {
		return nil, fmt.Errorf("%w: %s", ErrContentTypeExists, req.APIID)
	}

	now := time.Now().UTC()
	ct := &ContentType{
		APIID:       req.APIID,
		DisplayName: req.DisplayName,
		Description: req.Description,
		Fields:      req.Fields,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repository.CreateContentType(ctx, ct); err != nil {
		return nil, err
	}

	// Compile before returning so a create immediately after define
	// observes a usable model.
	s.registry.Register(Compile(ct))

	s.emitAudit(ctx, "content_type.define", func() error {
		return s.audit.ContentTypeDefined(ctx, ct)
	})
	return ct, nil
}

func (s *service) GetContentType(ctx context.Context, apiID string) (*ContentType, error) {
	return s.repository.GetContentType(ctx, apiID)
}

func (s *service) ListContentTypes(ctx context.Context) ([]*ContentType, error) {
	return s.repository.ListContentTypes(ctx)
}

func (s *service) ReplaceContentType(ctx context.Context, apiID string, req DefineContentTypeRequest) (*ContentType, error) {
	existing, err := s.repository.GetContentType(ctx, apiID)
	if err != nil {
		return nil, err
	}

	// Self-relations stay legal while the definition is being replaced.
	typeExists := func(target string) bool {
		return target == req.APIID || s.registry.Has(target)
	}
	if err := validateDefinition(req, typeExists); err != nil {
		return nil, err
	}
	if req.APIID != apiID && s.registry.Has(req.APIID) {
		return nil, fmt.Errorf("%w: %s", ErrContentTypeExists, req.APIID)
	}

	ct := &ContentType{
		APIID:       req.APIID,
		DisplayName: req.DisplayName,
		Description: req.Description,
		Fields:      req.Fields,
		CreatedAt:   existing.CreatedAt,
		UpdatedAt:   time.Now().UTC(),
	}

	if err := s.repository.UpdateContentType(ctx, apiID, ct); err != nil {
		return nil, err
	}

	if req.APIID != apiID {
		s.registry.Remove(apiID)
	}
	s.registry.Register(Compile(ct))

	s.emitAudit(ctx, "content_type.replace", func() error {
		return s.audit.ContentTypeReplaced(ctx, ct)
	})
	return ct, nil
}

func (s *service) DeleteContentType(ctx context.Context, apiID string) error {
	if _, err := s.repository.GetContentType(ctx, apiID); err != nil {
		return err
	}

	// Drop the model first so concurrent CRUD calls fail fast with
	// not-found while the cascade runs.
	s.registry.Remove(apiID)

	removed, err := s.repository.DeleteEntriesByType(ctx, apiID)
	if err != nil {
		return err
	}
	if err := s.repository.DeleteContentType(ctx, apiID); err != nil {
		return err
	}

	s.emitAudit(ctx, "content_type.remove", func() error {
		return s.audit.ContentTypeRemoved(ctx, apiID, removed)
	})
	return nil
}

// Generic CRUD operations

func (s *service) CreateEntry(ctx context.Context, req CreateEntryRequest) (*Entry, error) {
	model, err := s.registry.Get(req.TypeID)
	if err != nil {
		return nil, err
	}

	data, err := s.buildEntryData(ctx, model, req.Data, nil)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entry := &Entry{
		ID:        uuid.New(),
		TypeID:    model.APIID,
		Data:      data,
		State:     EntryStateDraft,
		CreatedBy: req.Actor.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repository.CreateEntry(ctx, entry); err != nil {
		return nil, &EntryError{TypeID: model.APIID, EntryID: entry.ID, Op: "create", Err: err}
	}

	s.emitAudit(ctx, "entry.create", func() error {
		return s.audit.EntryCreated(ctx, entry)
	})
	return entry, nil
}

func (s *service) GetEntry(ctx context.Context, typeID, entryID string) (*Entry, error) {
	if _, err := s.registry.Get(typeID); err != nil {
		return nil, err
	}
	id, err := parseEntryID(entryID)
	if err != nil {
		return nil, err
	}
	return s.repository.GetEntry(ctx, typeID, id)
}

func (s *service) ListEntries(ctx context.Context, req ListEntriesRequest) (*EntryList, error) {
	model, err := s.registry.Get(req.TypeID)
	if err != nil {
		return nil, err
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	limit := req.Limit
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	sortField, sortDesc := parseSort(req.Sort)
	params := ListEntriesParams{
		TypeID:       model.APIID,
		Search:       req.Search,
		SearchFields: model.StringFields(),
		SortField:    sortField,
		SortDesc:     sortDesc,
		Limit:        limit,
		Offset:       (page - 1) * limit,
	}

	entries, total, err := s.repository.ListEntries(ctx, params)
	if err != nil {
		return nil, err
	}
	return &EntryList{Entries: entries, TotalCount: total}, nil
}

func (s *service) UpdateEntry(ctx context.Context, req UpdateEntryRequest) (*Entry, error) {
	model, err := s.registry.Get(req.TypeID)
	if err != nil {
		return nil, err
	}
	id, err := parseEntryID(req.EntryID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repository.GetEntry(ctx, req.TypeID, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeMutation(existing, req.Actor); err != nil {
		return nil, err
	}

	// A state key inside the payload goes through the workflow state
	// machine, never straight into storage.
	payload := make(map[string]interface{}, len(req.Data))
	for k, v := range req.Data {
		payload[k] = v
	}
	var requestedState *EntryState
	if raw, ok := payload["state"]; ok {
		delete(payload, "state")
		str, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: state must be a string", ErrInvalidEntryState)
		}
		st := EntryState(str)
		requestedState = &st
	}

	data, err := s.buildEntryPatch(ctx, model, payload, &id)
	if err != nil {
		return nil, err
	}

	updated := existing.Clone()
	for k, v := range data {
		updated.Data[k] = v
	}

	previousState := updated.State
	if requestedState != nil {
		next, err := resolveStateChange(updated.State, *requestedState, req.Actor, s.settings.ContentApprovalRequired(ctx))
		if err != nil {
			return nil, err
		}
		updated.State = next
	}
	updated.UpdatedAt = time.Now().UTC()

	if err := s.repository.UpdateEntry(ctx, updated); err != nil {
		return nil, &EntryError{TypeID: model.APIID, EntryID: id, Op: "update", Err: err}
	}

	s.emitAudit(ctx, "entry.update", func() error {
		return s.audit.EntryUpdated(ctx, updated)
	})
	if requestedState != nil && updated.State != previousState {
		s.emitAudit(ctx, "entry.state", func() error {
			return s.audit.EntryStateChanged(ctx, updated, previousState)
		})
	}
	return updated, nil
}

func (s *service) DeleteEntry(ctx context.Context, req DeleteEntryRequest) error {
	if _, err := s.registry.Get(req.TypeID); err != nil {
		return err
	}
	id, err := parseEntryID(req.EntryID)
	if err != nil {
		return err
	}

	existing, err := s.repository.GetEntry(ctx, req.TypeID, id)
	if err != nil {
		return err
	}
	if err := authorizeMutation(existing, req.Actor); err != nil {
		return err
	}

	// Entries that merely reference the deleted one are left alone;
	// dangling references are accepted.
	if err := s.repository.DeleteEntry(ctx, req.TypeID, id); err != nil {
		return err
	}

	s.emitAudit(ctx, "entry.delete", func() error {
		return s.audit.EntryDeleted(ctx, req.TypeID, id, req.Actor)
	})
	return nil
}

// Workflow operations

func (s *service) ChangeEntryState(ctx context.Context, req ChangeEntryStateRequest) (*Entry, error) {
	if _, err := s.registry.Get(req.TypeID); err != nil {
		return nil, err
	}
	id, err := parseEntryID(req.EntryID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repository.GetEntry(ctx, req.TypeID, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeMutation(existing, req.Actor); err != nil {
		return nil, err
	}

	next, err := resolveStateChange(existing.State, req.State, req.Actor, s.settings.ContentApprovalRequired(ctx))
	if err != nil {
		return nil, err
	}

	updated := existing.Clone()
	previous := updated.State
	updated.State = next
	updated.UpdatedAt = time.Now().UTC()

	if err := s.repository.UpdateEntry(ctx, updated); err != nil {
		return nil, &EntryError{TypeID: req.TypeID, EntryID: id, Op: "state", Err: err}
	}

	if updated.State != previous {
		s.emitAudit(ctx, "entry.state", func() error {
			return s.audit.EntryStateChanged(ctx, updated, previous)
		})
	}
	return updated, nil
}

// Helpers

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// buildEntryData normalizes, coerces, defaults and validates a full create
// payload against the compiled model.
func (s *service) buildEntryData(ctx context.Context, model *CompiledModel, raw map[string]interface{}, excludeID *uuid.UUID) (map[string]interface{}, error) {
	data, err := s.buildEntryPatch(ctx, model, raw, excludeID)
	if err != nil {
		return nil, err
	}

	// Defaults fill in before the required check, in declaration order.
	for _, name := range model.Order {
		f := model.Fields[name]
		if _, present := data[name]; present || f.Default == nil {
			continue
		}
		value, err := CoerceValue(f, f.Default)
		if err != nil {
			return nil, err
		}
		data[name] = value
	}

	for _, name := range model.Order {
		f := model.Fields[name]
		if !f.Required {
			continue
		}
		if _, present := data[name]; !present {
			return nil, &ValidationError{FieldName: name, Reason: "field required"}
		}
	}
	return data, nil
}

// buildEntryPatch normalizes and coerces the fields present in a payload
// without applying defaults or the required check (update semantics).
func (s *service) buildEntryPatch(ctx context.Context, model *CompiledModel, raw map[string]interface{}, excludeID *uuid.UUID) (map[string]interface{}, error) {
	normalized := normalizeData(model, raw)

	data := make(map[string]interface{}, len(normalized))
	for _, name := range model.Order {
		value, present := normalized[name]
		if !present {
			continue
		}
		f := model.Fields[name]
		coerced, err := CoerceValue(f, value)
		if err != nil {
			return nil, err
		}
		data[name] = coerced
	}

	for key := range normalized {
		if _, known := model.Fields[key]; !known {
			return nil, &ValidationError{FieldName: key, Reason: "unknown field"}
		}
	}

	if err := s.resolveReferences(ctx, model, data); err != nil {
		return nil, err
	}
	if err := s.checkUnique(ctx, model, data, excludeID); err != nil {
		return nil, err
	}
	return data, nil
}

// resolveReferences verifies that every surviving relation reference points
// at an existing entry of the target type and every media reference at an
// existing media item.
func (s *service) resolveReferences(ctx context.Context, model *CompiledModel, data map[string]interface{}) error {
	for _, name := range model.Order {
		f := model.Fields[name]
		if !f.IsReference() {
			continue
		}
		value, present := data[name]
		if !present {
			continue
		}

		var refs []string
		switch v := value.(type) {
		case string:
			refs = []string{v}
		case []string:
			refs = v
		}

		for _, ref := range refs {
			id, err := uuid.Parse(ref)
			if err != nil {
				return &ValidationError{FieldName: name, Reason: fmt.Sprintf("%q is not a valid identifier", ref)}
			}
			switch f.Type {
			case FieldTypeRelation:
				if _, err := s.repository.GetEntry(ctx, f.RelationTo, id); err != nil {
					if errors.Is(err, ErrEntryNotFound) {
						return &ValidationError{FieldName: name, Reason: fmt.Sprintf("references missing %s entry %s", f.RelationTo, ref)}
					}
					return err
				}
			case FieldTypeMedia:
				exists, err := s.media.MediaExists(ctx, id)
				if err != nil {
					return err
				}
				if !exists {
					return &ValidationError{FieldName: name, Reason: fmt.Sprintf("references missing media %s", ref)}
				}
			}
		}
	}
	return nil
}

// checkUnique enforces unique-flagged fields against stored entries.
func (s *service) checkUnique(ctx context.Context, model *CompiledModel, data map[string]interface{}, excludeID *uuid.UUID) error {
	for _, name := range model.Order {
		f := model.Fields[name]
		if !f.Unique {
			continue
		}
		value, present := data[name]
		if !present {
			continue
		}
		count, err := s.repository.CountEntriesWithValue(ctx, model.APIID, name, value, excludeID)
		if err != nil {
			return err
		}
		if count > 0 {
			return &ValidationError{FieldName: name, Reason: "value must be unique"}
		}
	}
	return nil
}

// authorizeMutation enforces the ownership rule: only the entry's creator or
// a privileged actor may mutate it.
func authorizeMutation(entry *Entry, actor Actor) error {
	if actor.Privileged || actor.ID == entry.CreatedBy {
		return nil
	}
	return fmt.Errorf("%w: actor %s does not own entry %s", ErrPermissionDenied, actor.ID, entry.ID)
}

// parseEntryID maps a syntactically invalid identifier to the same error as
// a missing entry so callers cannot distinguish the two.
func parseEntryID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrEntryNotFound
	}
	return id, nil
}

// parseSort splits a sort expression ("field" or "-field") into column and
// direction. Empty input sorts newest-created-first.
func parseSort(sort string) (string, bool) {
	if sort == "" {
		return "created_at", true
	}
	if sort[0] == '-' {
		return sort[1:], true
	}
	return sort, false
}

// emitAudit runs one audit emission, logging and swallowing any failure: an
// audit outage never blocks or fails a content operation.
func (s *service) emitAudit(ctx context.Context, op string, fn func() error) {
	if err := fn(); err != nil {
		s.logger.ErrorContext(ctx, "audit event failed", "op", op, "error", err)
	}
}
