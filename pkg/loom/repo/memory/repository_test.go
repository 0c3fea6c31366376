package memory

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

func articleType() *loom.ContentType {
	now := time.Now().UTC()
	return &loom.ContentType{
		APIID:       "article",
		DisplayName: "Article",
		Fields: []loom.Field{
			{Name: "title", Type: loom.FieldTypeText, Required: true},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func newEntry(typeID, title string, createdAt time.Time) *loom.Entry {
	return &loom.Entry{
		ID:        uuid.New(),
		TypeID:    typeID,
		Data:      map[string]interface{}{"title": title},
		State:     loom.EntryStateDraft,
		CreatedBy: uuid.New(),
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestContentTypeCRUD(t *testing.T) {
	repo := New()
	ctx := context.Background()

	require.NoError(t, repo.CreateContentType(ctx, articleType()))
	assert.ErrorIs(t, repo.CreateContentType(ctx, articleType()), loom.ErrContentTypeExists)

	got, err := repo.GetContentType(ctx, "article")
	require.NoError(t, err)
	assert.Equal(t, "Article", got.DisplayName)

	_, err = repo.GetContentType(ctx, "missing")
	assert.ErrorIs(t, err, loom.ErrContentTypeNotFound)

	list, err := repo.ListContentTypes(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, repo.DeleteContentType(ctx, "article"))
	assert.ErrorIs(t, repo.DeleteContentType(ctx, "article"), loom.ErrContentTypeNotFound)
}

func TestListContentTypesSorted(t *testing.T) {
	repo := New()
	ctx := context.Background()
	for _, apiID := range []string{"zebra", "apple", "mango"} {
		ct := articleType()
		ct.APIID = apiID
		require.NoError(t, repo.CreateContentType(ctx, ct))
	}

	list, err := repo.ListContentTypes(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "apple", list[0].APIID)
	assert.Equal(t, "zebra", list[2].APIID)
}

func TestUpdateContentTypeRenameMovesEntries(t *testing.T) {
	repo := New()
	ctx := context.Background()
	require.NoError(t, repo.CreateContentType(ctx, articleType()))

	entry := newEntry("article", "moved", time.Now().UTC())
	require.NoError(t, repo.CreateEntry(ctx, entry))

	renamed := articleType()
	renamed.APIID = "story"
	require.NoError(t, repo.UpdateContentType(ctx, "article", renamed))

	_, err := repo.GetContentType(ctx, "article")
	assert.ErrorIs(t, err, loom.ErrContentTypeNotFound)

	moved, err := repo.GetEntry(ctx, "story", entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "story", moved.TypeID)
	assert.Equal(t, "moved", moved.Data["title"])
}

func TestUpdateContentTypeRenameCollision(t *testing.T) {
	repo := New()
	ctx := context.Background()
	require.NoError(t, repo.CreateContentType(ctx, articleType()))
	other := articleType()
	other.APIID = "story"
	require.NoError(t, repo.CreateContentType(ctx, other))

	renamed := articleType()
	renamed.APIID = "story"
	assert.ErrorIs(t, repo.UpdateContentType(ctx, "article", renamed), loom.ErrContentTypeExists)
}

func TestEntryCRUD(t *testing.T) {
	repo := New()
	ctx := context.Background()
	require.NoError(t, repo.CreateContentType(ctx, articleType()))

	entry := newEntry("article", "hello", time.Now().UTC())
	require.NoError(t, repo.CreateEntry(ctx, entry))

	got, err := repo.GetEntry(ctx, "article", entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, got.ID)

	_, err = repo.GetEntry(ctx, "article", uuid.New())
	assert.ErrorIs(t, err, loom.ErrEntryNotFound)

	got.Data["title"] = "changed"
	require.NoError(t, repo.UpdateEntry(ctx, got))
	again, err := repo.GetEntry(ctx, "article", entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "changed", again.Data["title"])

	require.NoError(t, repo.DeleteEntry(ctx, "article", entry.ID))
	assert.ErrorIs(t, repo.DeleteEntry(ctx, "article", entry.ID), loom.ErrEntryNotFound)
}

func TestRepositoryCopiesOnReadAndWrite(t *testing.T) {
	repo := New()
	ctx := context.Background()
	require.NoError(t, repo.CreateContentType(ctx, articleType()))

	entry := newEntry("article", "original", time.Now().UTC())
	require.NoError(t, repo.CreateEntry(ctx, entry))

	// Mutating either the stored-from or read-out value must not leak.
	entry.Data["title"] = "mutated after store"
	got, err := repo.GetEntry(ctx, "article", entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", got.Data["title"])

	got.Data["title"] = "mutated after read"
	again, err := repo.GetEntry(ctx, "article", entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", again.Data["title"])
}

func TestListEntriesSearchAndPaging(t *testing.T) {
	repo := New()
	ctx := context.Background()
	require.NoError(t, repo.CreateContentType(ctx, articleType()))

	base := time.Now().UTC()
	for i := 0; i < 8; i++ {
		title := fmt.Sprintf("Plain %d", i)
		if i%2 == 0 {
			title = fmt.Sprintf("Special %d", i)
		}
		require.NoError(t, repo.CreateEntry(ctx, newEntry("article", title, base.Add(time.Duration(i)*time.Second))))
	}

	entries, total, err := repo.ListEntries(ctx, loom.ListEntriesParams{
		TypeID:       "article",
		Search:       "special",
		SearchFields: []string{"title"},
		Limit:        2,
		Offset:       0,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, entries, 2)

	entries, total, err = repo.ListEntries(ctx, loom.ListEntriesParams{
		TypeID:       "article",
		Search:       "special",
		SearchFields: []string{"title"},
		Limit:        2,
		Offset:       2,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, entries, 2)

	// Offset past the end yields an empty page, not an error.
	entries, total, err = repo.ListEntries(ctx, loom.ListEntriesParams{
		TypeID: "article", Limit: 10, Offset: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, 8, total)
	assert.Empty(t, entries)
}

func TestListEntriesSorting(t *testing.T) {
	repo := New()
	ctx := context.Background()
	require.NoError(t, repo.CreateContentType(ctx, articleType()))

	base := time.Now().UTC()
	require.NoError(t, repo.CreateEntry(ctx, newEntry("article", "banana", base)))
	require.NoError(t, repo.CreateEntry(ctx, newEntry("article", "apple", base.Add(time.Second))))
	require.NoError(t, repo.CreateEntry(ctx, newEntry("article", "cherry", base.Add(2*time.Second))))

	entries, _, err := repo.ListEntries(ctx, loom.ListEntriesParams{
		TypeID: "article", SortField: "title", Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "apple", entries[0].Data["title"])
	assert.Equal(t, "cherry", entries[2].Data["title"])

	entries, _, err = repo.ListEntries(ctx, loom.ListEntriesParams{
		TypeID: "article", SortField: "created_at", SortDesc: true, Limit: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, "cherry", entries[0].Data["title"])
	assert.Equal(t, "banana", entries[2].Data["title"])
}

func TestDeleteEntriesByType(t *testing.T) {
	repo := New()
	ctx := context.Background()
	require.NoError(t, repo.CreateContentType(ctx, articleType()))

	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.CreateEntry(ctx, newEntry("article", "x", now)))
	}

	removed, err := repo.DeleteEntriesByType(ctx, "article")
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	removed, err = repo.DeleteEntriesByType(ctx, "article")
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestCountEntriesWithValue(t *testing.T) {
	repo := New()
	ctx := context.Background()
	require.NoError(t, repo.CreateContentType(ctx, articleType()))

	now := time.Now().UTC()
	target := newEntry("article", "dup", now)
	require.NoError(t, repo.CreateEntry(ctx, target))
	require.NoError(t, repo.CreateEntry(ctx, newEntry("article", "dup", now)))
	require.NoError(t, repo.CreateEntry(ctx, newEntry("article", "other", now)))

	count, err := repo.CountEntriesWithValue(ctx, "article", "title", "dup", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = repo.CountEntriesWithValue(ctx, "article", "title", "dup", &target.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = repo.CountEntriesWithValue(ctx, "article", "title", "nowhere", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
