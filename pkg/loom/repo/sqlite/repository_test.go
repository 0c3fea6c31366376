package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomcms/loom/pkg/loom"
)

func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func articleType() *loom.ContentType {
	now := time.Now().UTC()
	return &loom.ContentType{
		APIID:       "article",
		DisplayName: "Article",
		Description: "Long-form content",
		Fields: []loom.Field{
			{Name: "title", Type: loom.FieldTypeText, Required: true},
			{Name: "rating", Type: loom.FieldTypeNumber},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func newEntry(typeID string, data map[string]interface{}, createdAt time.Time) *loom.Entry {
	return &loom.Entry{
		ID:        uuid.New(),
		TypeID:    typeID,
		Data:      data,
		State:     loom.EntryStateDraft,
		CreatedBy: uuid.New(),
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestContentTypeRoundTrip(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	ct := articleType()

	require.NoError(t, repo.CreateContentType(ctx, ct))
	assert.ErrorIs(t, repo.CreateContentType(ctx, ct), loom.ErrContentTypeExists)

	got, err := repo.GetContentType(ctx, "article")
	require.NoError(t, err)
	assert.Equal(t, ct.APIID, got.APIID)
	assert.Equal(t, ct.DisplayName, got.DisplayName)
	assert.Equal(t, ct.Description, got.Description)
	assert.Equal(t, ct.Fields, got.Fields)
	assert.True(t, ct.CreatedAt.Equal(got.CreatedAt))

	_, err = repo.GetContentType(ctx, "missing")
	assert.ErrorIs(t, err, loom.ErrContentTypeNotFound)
}

func TestListContentTypesOrdered(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	for _, apiID := range []string{"zebra", "apple"} {
		ct := articleType()
		ct.APIID = apiID
		require.NoError(t, repo.CreateContentType(ctx, ct))
	}

	list, err := repo.ListContentTypes(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "apple", list[0].APIID)
	assert.Equal(t, "zebra", list[1].APIID)
}

func TestUpdateContentTypeRename(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.CreateContentType(ctx, articleType()))

	entry := newEntry("article", map[string]interface{}{"title": "moved"}, time.Now().UTC())
	require.NoError(t, repo.CreateEntry(ctx, entry))

	renamed := articleType()
	renamed.APIID = "story"
	require.NoError(t, repo.UpdateContentType(ctx, "article", renamed))

	_, err := repo.GetContentType(ctx, "article")
	assert.ErrorIs(t, err, loom.ErrContentTypeNotFound)

	moved, err := repo.GetEntry(ctx, "story", entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "story", moved.TypeID)

	assert.ErrorIs(t, repo.UpdateContentType(ctx, "ghost", renamed), loom.ErrContentTypeNotFound)
}

func TestEntryRoundTrip(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.CreateContentType(ctx, articleType()))

	entry := newEntry("article", map[string]interface{}{"title": "hello", "rating": 4.5}, time.Now().UTC())
	require.NoError(t, repo.CreateEntry(ctx, entry))

	got, err := repo.GetEntry(ctx, "article", entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, got.ID)
	assert.Equal(t, entry.CreatedBy, got.CreatedBy)
	assert.Equal(t, loom.EntryStateDraft, got.State)
	assert.Equal(t, "hello", got.Data["title"])
	assert.Equal(t, 4.5, got.Data["rating"])
	assert.True(t, entry.CreatedAt.Equal(got.CreatedAt))

	_, err = repo.GetEntry(ctx, "article", uuid.New())
	assert.ErrorIs(t, err, loom.ErrEntryNotFound)
}

func TestUpdateAndDeleteEntry(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.CreateContentType(ctx, articleType()))

	entry := newEntry("article", map[string]interface{}{"title": "v1"}, time.Now().UTC())
	require.NoError(t, repo.CreateEntry(ctx, entry))

	entry.Data["title"] = "v2"
	entry.State = loom.EntryStatePublished
	entry.UpdatedAt = time.Now().UTC()
	require.NoError(t, repo.UpdateEntry(ctx, entry))

	got, err := repo.GetEntry(ctx, "article", entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Data["title"])
	assert.Equal(t, loom.EntryStatePublished, got.State)

	missing := newEntry("article", map[string]interface{}{}, time.Now().UTC())
	assert.ErrorIs(t, repo.UpdateEntry(ctx, missing), loom.ErrEntryNotFound)

	require.NoError(t, repo.DeleteEntry(ctx, "article", entry.ID))
	assert.ErrorIs(t, repo.DeleteEntry(ctx, "article", entry.ID), loom.ErrEntryNotFound)
}

func TestListEntriesSearchPagingAndSort(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.CreateContentType(ctx, articleType()))

	base := time.Now().UTC()
	titles := []string{"Alpha Special", "beta plain", "Gamma SPECIAL", "delta plain", "epsilon special"}
	for i, title := range titles {
		entry := newEntry("article", map[string]interface{}{"title": title}, base.Add(time.Duration(i)*time.Second))
		require.NoError(t, repo.CreateEntry(ctx, entry))
	}

	entries, total, err := repo.ListEntries(ctx, loom.ListEntriesParams{
		TypeID:       "article",
		Search:       "special",
		SearchFields: []string{"title"},
		Limit:        2,
		Offset:       0,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, entries, 2)

	entries, _, err = repo.ListEntries(ctx, loom.ListEntriesParams{
		TypeID:    "article",
		SortField: "title",
		Limit:     10,
	})
	require.NoError(t, err)
	require.Len(t, entries, 5)
	assert.Equal(t, "Alpha Special", entries[0].Data["title"])

	entries, _, err = repo.ListEntries(ctx, loom.ListEntriesParams{
		TypeID:    "article",
		SortField: "created_at",
		SortDesc:  true,
		Limit:     10,
	})
	require.NoError(t, err)
	assert.Equal(t, "epsilon special", entries[0].Data["title"])
}

func TestDeleteEntriesByType(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.CreateContentType(ctx, articleType()))

	now := time.Now().UTC()
	for i := 0; i < 4; i++ {
		entry := newEntry("article", map[string]interface{}{"title": fmt.Sprintf("e%d", i)}, now)
		require.NoError(t, repo.CreateEntry(ctx, entry))
	}

	removed, err := repo.DeleteEntriesByType(ctx, "article")
	require.NoError(t, err)
	assert.Equal(t, 4, removed)

	removed, err = repo.DeleteEntriesByType(ctx, "article")
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestCountEntriesWithValue(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.CreateContentType(ctx, articleType()))

	now := time.Now().UTC()
	target := newEntry("article", map[string]interface{}{"title": "dup", "rating": 5.0}, now)
	require.NoError(t, repo.CreateEntry(ctx, target))
	require.NoError(t, repo.CreateEntry(ctx, newEntry("article", map[string]interface{}{"title": "dup"}, now)))
	require.NoError(t, repo.CreateEntry(ctx, newEntry("article", map[string]interface{}{"title": "other"}, now)))

	count, err := repo.CountEntriesWithValue(ctx, "article", "title", "dup", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = repo.CountEntriesWithValue(ctx, "article", "title", "dup", &target.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Numeric values compare by value, not by text representation.
	count, err = repo.CountEntriesWithValue(ctx, "article", "rating", 5.0, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Entries lacking the field never match.
	count, err = repo.CountEntriesWithValue(ctx, "article", "rating", 1.0, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
