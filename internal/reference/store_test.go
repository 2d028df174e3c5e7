package reference

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/qa-rag/internal/document"
)

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewStore(dir)

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	page := document.New("my-checkout.html", []byte(`<button id="pay">Pay</button>`))
	require.NoError(t, store.Save(ctx, page))

	exists, err := store.Exists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, FileName, loaded.Name)
	assert.Equal(t, document.Markup, loaded.Kind)
	assert.Equal(t, page.Content, loaded.Content)

	onDisk, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.Equal(t, page.Content, onDisk)
}

func TestStore_SaveOverwrites(t *testing.T) {
	ctx := context.Background()
	store := NewStore(t.TempDir())

	require.NoError(t, store.Save(ctx, document.New("a.html", []byte("<p>first version with more bytes</p>"))))
	require.NoError(t, store.Save(ctx, document.New("b.htm", []byte("<p>second</p>"))))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "<p>second</p>", string(loaded.Content))
}

func TestStore_RejectsNonMarkup(t *testing.T) {
	store := NewStore(t.TempDir())

	err := store.Save(context.Background(), document.New("notes.md", []byte("# hi")))
	assert.ErrorIs(t, err, ErrNotMarkup)
}
