// Tests for the SQLite backend lifecycle and adapter operations.
package sqlite

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/cruds/pkg/types"
)

func bookModel() *types.Model {
	return &types.Model{
		Name: "Book",
		Fields: []types.Field{
			{Name: "title", Type: types.FieldTypeText, Required: true},
			{Name: "pages", Type: types.FieldTypeInteger},
			{Name: "published", Type: types.FieldTypeTimestamp},
			{Name: "tags", Type: types.FieldTypeList},
		},
	}
}

// setupBackend attaches a backend to a temp dir and detaches it on cleanup.
func setupBackend(t *testing.T, strategy string) (*Backend, string) {
	t.Helper()
	dir := t.TempDir()
	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{
		Backend:      types.BackendSQLite,
		DataDir:      dir,
		SyncStrategy: strategy,
	}))
	t.Cleanup(func() { b.Detach() })
	return b, dir
}

func newBook(title string, pages int64) *types.Record {
	r := types.NewRecord("")
	r.Set("title", title)
	r.Set("pages", pages)
	return r
}

func TestBackend_Attach(t *testing.T) {
	tmpDir := t.TempDir()

	b := NewBackend()
	config := types.Config{Backend: types.BackendSQLite, DataDir: tmpDir}
	require.NoError(t, b.Attach(config))
	defer b.Detach()

	_, err := os.Stat(filepath.Join(tmpDir, dbFileName))
	assert.NoError(t, err, "database file should exist")

	assert.ErrorIs(t, b.Attach(config), types.ErrAlreadyAttached)
}

func TestBackend_AttachInvalidConfig(t *testing.T) {
	b := NewBackend()
	assert.ErrorIs(t, b.Attach(types.Config{}), types.ErrBackendEmpty)
	assert.ErrorIs(t, b.Attach(types.Config{Backend: types.BackendSQLite, SyncStrategy: "batch"}), types.ErrSyncStrategyUnknown)
}

func TestBackend_Detach(t *testing.T) {
	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	a, err := b.Adapter(bookModel())
	require.NoError(t, err)

	require.NoError(t, b.Detach())
	assert.NoError(t, b.Detach(), "second Detach should not error")

	_, err = b.Adapter(bookModel())
	assert.ErrorIs(t, err, types.ErrStoreDetached)

	_, err = a.List(context.Background(), nil)
	assert.ErrorIs(t, err, types.ErrStoreDetached)
}

func TestBackend_AdapterRejectsInvalidModel(t *testing.T) {
	b, _ := setupBackend(t, "")
	_, err := b.Adapter(&types.Model{Name: "Empty"})
	assert.ErrorIs(t, err, types.ErrNoFields)
}

func TestBackend_AdapterCreatesJSONLFile(t *testing.T) {
	b, dir := setupBackend(t, "")
	_, err := b.Adapter(bookModel())
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dir, "book.jsonl"))
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestAdapter_CRUD(t *testing.T) {
	ctx := context.Background()
	b, _ := setupBackend(t, "")
	a, err := b.Adapter(bookModel())
	require.NoError(t, err)

	saved, err := a.Save(ctx, newBook("Dune", 412))
	require.NoError(t, err)
	require.NotEmpty(t, saved.PK, "pk should be generated")
	assert.False(t, saved.CreatedAt.IsZero())

	got, err := a.Get(ctx, saved.PK)
	require.NoError(t, err)
	assert.Equal(t, "Dune", got.Get("title"))
	assert.Equal(t, int64(412), got.Get("pages"))

	got.Set("pages", int64(500))
	updated, err := a.Save(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, saved.PK, updated.PK)
	assert.Equal(t, int64(500), updated.Get("pages"))
	assert.Equal(t, saved.CreatedAt, updated.CreatedAt, "CreatedAt must survive updates")

	all, err := a.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, a.Delete(ctx, updated))
	_, err = a.Get(ctx, saved.PK)
	assert.ErrorIs(t, err, types.ErrNotFound)

	assert.ErrorIs(t, a.Delete(ctx, updated), types.ErrNotFound)
}

func TestAdapter_GetInvalidPK(t *testing.T) {
	b, _ := setupBackend(t, "")
	a, err := b.Adapter(bookModel())
	require.NoError(t, err)

	_, err = a.Get(context.Background(), "")
	assert.ErrorIs(t, err, types.ErrInvalidPK)
}

func TestAdapter_SaveValidation(t *testing.T) {
	b, _ := setupBackend(t, "")
	a, err := b.Adapter(bookModel())
	require.NoError(t, err)

	_, err = a.Save(context.Background(), types.NewRecord(""))
	var verrs types.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, types.MsgRequired, verrs["title"])
}

func TestAdapter_ListOrderAndFilter(t *testing.T) {
	ctx := context.Background()
	b, _ := setupBackend(t, "")
	a, err := b.Adapter(bookModel())
	require.NoError(t, err)

	for i, title := range []string{"A", "B", "C"} {
		_, err := a.Save(ctx, newBook(title, int64(100*(i%2))))
		require.NoError(t, err)
	}

	all, err := a.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "A", all[0].Get("title"))
	assert.Equal(t, "C", all[2].Get("title"))

	zero, err := a.List(ctx, map[string]any{"pages": 0})
	require.NoError(t, err)
	assert.Len(t, zero, 2)

	_, err = a.List(ctx, map[string]any{"missing": 1})
	assert.ErrorIs(t, err, types.ErrInvalidFilter)
}

func TestAdapter_Erase(t *testing.T) {
	ctx := context.Background()
	b, _ := setupBackend(t, "")
	a, err := b.Adapter(bookModel())
	require.NoError(t, err)

	_, err = a.Save(ctx, newBook("A", 1))
	require.NoError(t, err)
	require.NoError(t, a.Erase(ctx))

	all, err := a.List(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestAdapter_ModelsAreIsolated(t *testing.T) {
	ctx := context.Background()
	b, _ := setupBackend(t, "")
	books, err := b.Adapter(bookModel())
	require.NoError(t, err)
	authors, err := b.Adapter(&types.Model{
		Name:   "Author",
		Fields: []types.Field{{Name: "title", Type: types.FieldTypeText}},
	})
	require.NoError(t, err)

	_, err = books.Save(ctx, newBook("Dune", 1))
	require.NoError(t, err)

	all, err := authors.List(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, all)
	require.NoError(t, authors.Erase(ctx))

	all, err = books.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestAdapter_DeclaredPrimaryKey(t *testing.T) {
	ctx := context.Background()
	b, _ := setupBackend(t, "")
	a, err := b.Adapter(&types.Model{
		Name:       "Tag",
		PrimaryKey: "slug",
		Fields: []types.Field{
			{Name: "slug", Type: types.FieldTypeText},
			{Name: "label", Type: types.FieldTypeText},
		},
	})
	require.NoError(t, err)

	r := types.NewRecord("")
	r.Set("slug", "go")
	r.Set("label", "Go")
	saved, err := a.Save(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, "go", saved.PK)

	_, err = a.Save(ctx, types.NewRecord(""))
	var verrs types.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs, "slug")
}

func TestBackend_ReattachReloadsJSONL(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := types.Config{Backend: types.BackendSQLite, DataDir: dir}

	b := NewBackend()
	require.NoError(t, b.Attach(cfg))
	a, err := b.Adapter(bookModel())
	require.NoError(t, err)
	published := time.Date(1965, 8, 1, 0, 0, 0, 0, time.UTC)
	r := newBook("Dune", 412)
	r.Set("published", published)
	r.Set("tags", []string{"sf"})
	saved, err := a.Save(ctx, r)
	require.NoError(t, err)
	require.NoError(t, b.Detach())

	b2 := NewBackend()
	require.NoError(t, b2.Attach(cfg))
	defer b2.Detach()
	a2, err := b2.Adapter(bookModel())
	require.NoError(t, err)

	got, err := a2.Get(ctx, saved.PK)
	require.NoError(t, err)
	assert.Equal(t, a.Dump(saved), a2.Dump(got))
	assert.Equal(t, published, got.Get("published"))
}

func TestBackend_OnCloseDefersJSONL(t *testing.T) {
	ctx := context.Background()
	b, dir := setupBackend(t, types.SyncOnClose)
	a, err := b.Adapter(bookModel())
	require.NoError(t, err)

	_, err = a.Save(ctx, newBook("Dune", 1))
	require.NoError(t, err)

	path := filepath.Join(dir, "book.jsonl")
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size(), "on_close should not write before Detach")

	require.NoError(t, b.Detach())
	lines, err := readJSONL(path)
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestAdapter_LargeIntegers(t *testing.T) {
	ctx := context.Background()
	b, dir := setupBackend(t, types.SyncImmediate)
	a, err := b.Adapter(bookModel())
	require.NoError(t, err)

	values := []int64{math.MaxInt64, 9007199254740993, math.MinInt64}
	pks := make([]string, 0, len(values))
	for _, v := range values {
		saved, err := a.Save(ctx, newBook("big", v))
		require.NoError(t, err)
		pks = append(pks, saved.PK)

		got, err := a.Get(ctx, saved.PK)
		require.NoError(t, err)
		assert.Equal(t, v, got.Get("pages"))
	}

	// Reattach so the values are read back from the JSONL files.
	require.NoError(t, b.Detach())
	reopened := NewBackend()
	require.NoError(t, reopened.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir}))
	defer reopened.Detach()
	ra, err := reopened.Adapter(bookModel())
	require.NoError(t, err)
	for i, pk := range pks {
		got, err := ra.Get(ctx, pk)
		require.NoError(t, err)
		assert.Equal(t, values[i], got.Get("pages"))
	}
}
