package tokenstore

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "tokens.json"), zerolog.Nop())
}

func TestSaveLoad(t *testing.T) {
	s := newTestStore(t)

	s.Save("app", "v1", Tokens{Auth: "Bearer T", Refresh: "R"})

	got, ok := s.Load("app", "v1")
	require.True(t, ok)
	assert.Equal(t, "Bearer T", got.Auth)
	assert.Equal(t, "R", got.Refresh)
}

func TestLoad_Missing(t *testing.T) {
	s := newTestStore(t)

	_, ok := s.Load("app", "v1")
	assert.False(t, ok)
}

func TestSave_KeysAreIsolated(t *testing.T) {
	s := newTestStore(t)

	s.Save("app", "v1", Tokens{Auth: "one"})
	s.Save("app", "v2", Tokens{Auth: "two"})

	first, ok := s.Load("app", "v1")
	require.True(t, ok)
	assert.Equal(t, "one", first.Auth)

	second, ok := s.Load("app", "v2")
	require.True(t, ok)
	assert.Equal(t, "two", second.Auth)
}

func TestSave_Overwrites(t *testing.T) {
	s := newTestStore(t)

	s.Save("app", "v1", Tokens{Auth: "old", Refresh: "old-r"})
	s.Save("app", "v1", Tokens{Auth: "new", Refresh: "new-r"})

	got, ok := s.Load("app", "v1")
	require.True(t, ok)
	assert.Equal(t, "new", got.Auth)
	assert.Equal(t, "new-r", got.Refresh)
}

func TestSave_UnwritablePathDoesNotPanic(t *testing.T) {
	s := NewFileStore("/proc/definitely/not/writable/tokens.json", zerolog.Nop())
	s.Save("app", "v1", Tokens{Auth: "T"})

	_, ok := s.Load("app", "v1")
	assert.False(t, ok)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "app-v1", Key("app", "v1"))
}
