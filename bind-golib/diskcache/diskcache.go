// Package diskcache is a content-addressed cache that reads and writes to the filesystem.
// Keys are hashed into file names; values are written atomically so a reader never
// observes a partially written entry.
package diskcache

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	spooky "github.com/dgryski/go-spooky"
)

const tmpPrefix = ".tmp-"

var (
	// ErrNoSuchKey is returned by Cache.Get when a key does not exist in the cache
	ErrNoSuchKey = errors.New("key does not exist in cache")
)

// Options represents options for a cache
type Options struct {
	// MaxSize is the maximum total size of the cache in bytes; zero or less disables eviction.
	MaxSize         int64
	BytesUntilFlush int64
}

// Cache represents a disk-based cache with optional LRU eviction
type Cache struct {
	Path string
	opts Options

	m               sync.Mutex
	bytesSinceFlush int64 // bytes written since last flushCapacity
}

// Open creates a cache with contents stored as files in the given directory.
// It creates the directory if it does not already exist.
func Open(path string, opts Options) (*Cache, error) {
	err := os.MkdirAll(path, 0777)
	if err != nil {
		return nil, err
	}
	return &Cache{
		Path: path,
		opts: opts,
	}, nil
}

// OpenTemp creates a temporary directory and returns a cache backed by this
// directory. The user must remove the directory and any files within it when
// done.
func OpenTemp(opts Options) (*Cache, error) {
	path, err := ioutil.TempDir("", "")
	if err != nil {
		return nil, err
	}
	return Open(path, opts)
}

// Filename returns the path of the file that holds the value for key.
func (c *Cache) Filename(key []byte) string {
	return filepath.Join(c.Path, hash(key))
}

// Get looks up the value for the given key and returns it. If the key does not
// exist then ErrNoSuchKey is returned.
func (c *Cache) Get(key []byte) ([]byte, error) {
	r, err := c.GetReader(key)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return ioutil.ReadAll(r)
}

// GetReader looks up the value for the given key and returns a reader to it. If
// the key does not exist then ErrNoSuchKey is returned.
func (c *Cache) GetReader(key []byte) (io.ReadCloser, error) {
	r, err := os.Open(c.Filename(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSuchKey
		}
		return nil, err
	}
	return r, nil
}

// Exists reports whether the key exists.
func (c *Cache) Exists(key []byte) bool {
	_, err := os.Stat(c.Filename(key))
	return err == nil
}

// ModTime returns the time the value for key was written.
func (c *Cache) ModTime(key []byte) (time.Time, error) {
	fi, err := os.Stat(c.Filename(key))
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, ErrNoSuchKey
		}
		return time.Time{}, err
	}
	return fi.ModTime(), nil
}

// Put adds a key/value pair to the cache.
func (c *Cache) Put(key []byte, val []byte) error {
	w, err := c.PutWriter(key)
	if err != nil {
		return err
	}
	if _, err := w.Write(val); err != nil {
		w.(*putWriter).abort()
		return err
	}
	return w.Close()
}

// PutWriter adds a key/value pair to the cache via a io.WriteCloser. The value
// becomes visible under key only once Close returns without error.
func (c *Cache) PutWriter(key []byte) (io.WriteCloser, error) {
	f, err := ioutil.TempFile(c.Path, tmpPrefix)
	if err != nil {
		return nil, err
	}

	return &putWriter{f: f, c: c, path: c.Filename(key)}, nil
}

type putWriter struct {
	f       *os.File
	c       *Cache
	path    string
	written int64
}

func (p *putWriter) Write(buf []byte) (int, error) {
	p.written += int64(len(buf))
	return p.f.Write(buf)
}

func (p *putWriter) Close() error {
	if err := p.f.Close(); err != nil {
		os.Remove(p.f.Name())
		return err
	}

	if err := p.c.reserve(p.written); err != nil {
		log.Printf("error cleaning up cache in putWriter: %v", err)
	}

	if err := os.Rename(p.f.Name(), p.path); err != nil {
		os.Remove(p.f.Name())
		return fmt.Errorf("error committing cache entry: %v", err)
	}
	return nil
}

func (p *putWriter) abort() {
	p.f.Close()
	os.Remove(p.f.Name())
}

// reserve accounts for n new bytes and evicts old entries once enough bytes were written.
func (c *Cache) reserve(n int64) error {
	if c.opts.MaxSize <= 0 {
		return nil
	}

	c.m.Lock()
	defer c.m.Unlock()

	c.bytesSinceFlush += n
	if c.bytesSinceFlush <= c.opts.BytesUntilFlush {
		return nil
	}
	if err := c.flushCapacity(n); err != nil {
		return err
	}
	c.bytesSinceFlush = 0
	return nil
}

// flushCapacity deletes old entries until there are at least n bytes left
// in the cache budget.
func (c *Cache) flushCapacity(n int64) error {
	infos, err := ioutil.ReadDir(c.Path)
	if err != nil {
		return err
	}

	var files []os.FileInfo
	var sum int64
	for _, f := range infos {
		if f.IsDir() || strings.HasPrefix(f.Name(), tmpPrefix) {
			continue
		}
		files = append(files, f)
		sum += f.Size()
	}

	if sum+n <= c.opts.MaxSize {
		return nil
	}

	sort.Sort(byModTime(files))

	for _, f := range files {
		err := os.Remove(filepath.Join(c.Path, f.Name()))
		if err != nil {
			return err
		}
		sum -= f.Size()
		if sum+n <= c.opts.MaxSize {
			break
		}
	}
	return nil
}

type byModTime []os.FileInfo

func (xs byModTime) Len() int           { return len(xs) }
func (xs byModTime) Swap(i, j int)      { xs[i], xs[j] = xs[j], xs[i] }
func (xs byModTime) Less(i, j int) bool { return xs[i].ModTime().Before(xs[j].ModTime()) }

func hash(key []byte) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], spooky.Hash64(key))
	return hex.EncodeToString(buf[:])
}
