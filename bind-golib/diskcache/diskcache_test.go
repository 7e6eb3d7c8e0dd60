package diskcache

import (
	"io/ioutil"
	"os"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var opts = Options{
	MaxSize:         100,
	BytesUntilFlush: 10,
}

func assertCacheContents(t *testing.T, dir string, filenames ...string) {
	entries, err := ioutil.ReadDir(dir)
	require.NoError(t, err)

	var expected []string
	for _, f := range filenames {
		expected = append(expected, hash([]byte(f)))
	}

	var actual []string
	for _, entry := range entries {
		actual = append(actual, entry.Name())
	}

	sort.Strings(expected)
	sort.Strings(actual)
	assert.EqualValues(t, expected, actual)
}

func TestPutGetExists(t *testing.T) {
	c, err := OpenTemp(opts)
	require.NoError(t, err)
	defer os.RemoveAll(c.Path)

	assert.False(t, c.Exists([]byte("foo")))
	_, err = c.Get([]byte("foo"))
	assert.Equal(t, ErrNoSuchKey, err)

	err = c.Put([]byte("foo"), []byte("bar"))
	require.NoError(t, err)

	assert.True(t, c.Exists([]byte("foo")))

	val, err := c.Get([]byte("foo"))
	require.NoError(t, err)
	assert.Equal(t, "bar", string(val))
}

func TestPutWriterVisibleOnClose(t *testing.T) {
	c, err := OpenTemp(opts)
	require.NoError(t, err)
	defer os.RemoveAll(c.Path)

	w, err := c.PutWriter([]byte("tokens/refined/5"))
	require.NoError(t, err)
	_, err = w.Write([]byte("id,tokens,affinity\n"))
	require.NoError(t, err)

	assert.False(t, c.Exists([]byte("tokens/refined/5")), "entry must not be visible before Close")

	require.NoError(t, w.Close())
	assert.True(t, c.Exists([]byte("tokens/refined/5")))
	assertCacheContents(t, c.Path, "tokens/refined/5")
}

func TestModTime(t *testing.T) {
	c, err := OpenTemp(Options{})
	require.NoError(t, err)
	defer os.RemoveAll(c.Path)

	_, err = c.ModTime([]byte("foo"))
	assert.Equal(t, ErrNoSuchKey, err)

	require.NoError(t, c.Put([]byte("foo"), []byte("1")))
	mt, err := c.ModTime([]byte("foo"))
	require.NoError(t, err)
	assert.False(t, mt.IsZero())
}

func TestLRU(t *testing.T) {
	c, err := OpenTemp(Options{
		MaxSize:         10,
		BytesUntilFlush: 10,
	})
	require.NoError(t, err)
	defer os.RemoveAll(c.Path)

	old := time.Now().Add(-time.Hour)
	require.NoError(t, c.Put([]byte("foo"), []byte("1234")))
	require.NoError(t, os.Chtimes(c.Filename([]byte("foo")), old, old))
	require.NoError(t, c.Put([]byte("bar"), []byte("1234")))
	require.NoError(t, c.Put([]byte("baz"), []byte("1234")))

	assertCacheContents(t, c.Path, "bar", "baz")
}

func TestNoEvictionWithoutMaxSize(t *testing.T) {
	c, err := OpenTemp(Options{BytesUntilFlush: 1})
	require.NoError(t, err)
	defer os.RemoveAll(c.Path)

	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, c.Put([]byte(k), []byte("1234")))
	}
	assertCacheContents(t, c.Path, "a", "b", "c")
}
