package attachments

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pinIDs(t *testing.T, ids ...string) {
	t.Helper()
	orig := newID
	i := 0
	newID = func() string {
		id := ids[i%len(ids)]
		i++
		return id
	}
	t.Cleanup(func() { newID = orig })
}

func TestNewKey(t *testing.T) {
	pinIDs(t, "0000-uuid")

	tests := []struct {
		spider, file, want string
	}{
		{"1704067200000", "care sheet.pdf", "spiders/1704067200000/0000-uuid-care_sheet.pdf"},
		{"42", "/home/keeper/photos/rosie.jpg", "spiders/42/0000-uuid-rosie.jpg"},
		{"42", `C:\Users\keeper\cites.pdf`, "spiders/42/0000-uuid-cites.pdf"},
		{"../etc", "..", "spiders/_etc/0000-uuid-file"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NewKey(tt.spider, tt.file), "NewKey(%q, %q)", tt.spider, tt.file)
	}
}

func TestSanitizeKey(t *testing.T) {
	for _, bad := range []string{"", "  ", "/abs/key", "a/../b", ".."} {
		_, err := sanitizeKey(bad)
		assert.ErrorIs(t, err, ErrInvalidKey, "key %q", bad)
	}
	k, err := sanitizeKey("spiders/1/./x.pdf")
	require.NoError(t, err)
	assert.Equal(t, "spiders/1/x.pdf", k)
}

func TestParseDriver(t *testing.T) {
	d, err := ParseDriver("")
	require.NoError(t, err)
	assert.Equal(t, DriverFilesystem, d)

	d, err = ParseDriver(" S3 ")
	require.NoError(t, err)
	assert.Equal(t, DriverS3, d)

	_, err = ParseDriver("ftp")
	assert.Error(t, err)
}

// exerciseStore runs the shared contract against any driver.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	key := "spiders/7/abc-sheet.txt"

	info, err := s.Put(ctx, key, strings.NewReader("feed weekly"), PutOptions{
		ContentType: "text/plain",
		Metadata:    map[string]string{"spider": "7"},
	})
	require.NoError(t, err)
	assert.Equal(t, key, info.Key)
	assert.Equal(t, int64(len("feed weekly")), info.Size)
	assert.Equal(t, s.URI(key), info.URI)

	_, err = s.Put(ctx, key, strings.NewReader("again"), PutOptions{})
	assert.ErrorIs(t, err, ErrExists)

	got, rc, err := s.Get(ctx, key)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "feed weekly", string(body))
	assert.Equal(t, "text/plain", got.ContentType)

	back, ok := KeyFromURI(s, info.URI)
	require.True(t, ok)
	assert.Equal(t, key, back)

	deleted, err := s.Delete(ctx, key)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.Delete(ctx, key)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, _, err = s.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	m := NewMemory()
	exerciseStore(t, m)
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, DriverMemory, m.Driver())
}

func TestFilesystemStore(t *testing.T) {
	f, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)
	exerciseStore(t, f)
	assert.Equal(t, DriverFilesystem, f.Driver())
	assert.True(t, strings.HasPrefix(f.URI("x"), "file://"))
}

func TestFilesystemStore_RejectsTraversal(t *testing.T) {
	f, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)
	_, err = f.Put(context.Background(), "../escape.txt", bytes.NewReader(nil), PutOptions{})
	assert.ErrorIs(t, err, ErrInvalidKey)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestFilesystemStore_FailedWriteLeavesNothing(t *testing.T) {
	f, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = f.Put(ctx, "spiders/1/broken.bin", failingReader{}, PutOptions{})
	require.Error(t, err)
	_, _, err = f.Get(ctx, "spiders/1/broken.bin")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKeyFromURI_ForeignURI(t *testing.T) {
	m := NewMemory()
	for _, uri := range []string{"https://example.com/sheet.pdf", "file:///tmp/x.pdf", "memory://../x"} {
		_, ok := KeyFromURI(m, uri)
		assert.False(t, ok, "uri %q", uri)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{Root: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, DriverFilesystem, s.Driver())

	s, err = Open(ctx, Config{Driver: DriverMemory})
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, s.Driver())

	_, err = Open(ctx, Config{Driver: DriverS3})
	assert.Error(t, err, "s3 without bucket")

	_, err = Open(ctx, Config{Driver: "ftp"})
	assert.Error(t, err)

	_, err = Open(ctx, Config{Driver: DriverFilesystem})
	assert.Error(t, err, "fs without root")
}
