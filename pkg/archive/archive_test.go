package archive

import (
	"archive/zip"
	"bytes"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestOpenAndRead(t *testing.T) {
	content := zipBytes(t, map[string]string{
		"extension/package.json": `{"name":"demo"}`,
		"extension/README.md":    "# readme",
	})

	f, err := Open(content)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	t.Run("exact lookup", func(t *testing.T) {
		got := f.ReadEntry("extension/package.json")
		assert.Equal(t, `{"name":"demo"}`, string(got))
	})

	t.Run("missing entry yields nil", func(t *testing.T) {
		assert.Nil(t, f.ReadEntry("extension/missing.txt"))
		assert.Nil(t, f.FindEntry("extension/readme.md"))
	})

	t.Run("case-insensitive lookup", func(t *testing.T) {
		entry := f.FindEntryIgnoreCase("extension/readme.MD")
		require.NotNil(t, entry)
		assert.Equal(t, "extension/README.md", entry.Name)
		assert.Equal(t, "# readme", string(f.ReadEntryRef(entry)))
	})

	t.Run("nil entry ref yields nil", func(t *testing.T) {
		assert.Nil(t, f.ReadEntryRef(nil))
	})

	t.Run("entries in container order", func(t *testing.T) {
		assert.Len(t, f.Entries(), 2)
	})
}

func TestOpenMalformed(t *testing.T) {
	_, err := Open([]byte("this is not a zip file"))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestWrapOpenErr(t *testing.T) {
	t.Run("container faults map to ErrMalformed", func(t *testing.T) {
		assert.ErrorIs(t, wrapOpenErr(zip.ErrFormat), ErrMalformed)
		assert.ErrorIs(t, wrapOpenErr(zip.ErrInsecurePath), ErrMalformed)
	})

	t.Run("filesystem faults propagate as themselves", func(t *testing.T) {
		err := wrapOpenErr(fs.ErrPermission)
		assert.NotErrorIs(t, err, ErrMalformed)
		assert.ErrorIs(t, err, fs.ErrPermission)
	})
}

func TestCloseIsIdempotent(t *testing.T) {
	f, err := Open(zipBytes(t, map[string]string{"a.txt": "a"}))
	require.NoError(t, err)

	require.NoError(t, f.Close())
	assert.NoError(t, f.Close())
}
