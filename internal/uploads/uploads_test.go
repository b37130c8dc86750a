package uploads

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecureFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"leaf.jpg", "leaf.jpg"},
		{"My Leaf Photo.PNG", "My_Leaf_Photo.PNG"},
		{"../../etc/passwd", "etc_passwd"},
		{`C:\Users\me\pic.jpeg`, "C_Users_me_pic.jpeg"},
		{"çiçek.jpg", "cicek.jpg"},
		{"..hidden.png", "hidden.png"},
		{"$$$.jpg", "jpg"},
		{"???", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, SecureFilename(tt.in))
		})
	}
}

func TestStoreSaveOpenRemove(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "uploads")
	store, err := New(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	saved, err := store.Save(strings.NewReader("image-bytes"), "../leaf photo.jpg")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(saved.Name, "_leaf_photo.jpg"), saved.Name)
	assert.Equal(t, filepath.Join(dir, saved.Name), saved.Path)
	assert.EqualValues(t, len("image-bytes"), saved.Size)

	f, err := store.Open(saved.Name)
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, f.Close())
	require.NoError(t, err)
	assert.Equal(t, "image-bytes", string(data))

	again, err := store.Save(strings.NewReader("other"), "../leaf photo.jpg")
	require.NoError(t, err)
	assert.NotEqual(t, saved.Name, again.Name)

	require.NoError(t, store.Remove(saved.Name))
	_, err = os.Stat(saved.Path)
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, store.Remove(saved.Name), "removing twice is fine")
}

func TestStoreRejectsPaths(t *testing.T) {
	t.Parallel()

	store, err := New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	for _, name := range []string{"", "..", "../outside.jpg", "sub/dir.jpg"} {
		_, err := store.Open(name)
		assert.ErrorIs(t, err, ErrInvalidPath, name)
		assert.ErrorIs(t, store.Remove(name), ErrInvalidPath, name)
	}

	_, err = store.Save(strings.NewReader("x"), "???")
	assert.ErrorIs(t, err, ErrEmptyName)
}
