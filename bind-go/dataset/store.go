package dataset

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/bindlab/bind/bind-golib/diskcache"
	"github.com/bindlab/bind/bind-golib/errors"
	lru "github.com/hashicorp/golang-lru"
)

const (
	// Refined names the training table
	Refined = "refined"
	// Core names the held-out evaluation table
	Core = "core"
)

// ErrExists is returned when putting an artifact that is already stored
var ErrExists = errors.New("artifact already exists")

// ArtifactKey identifies one stored dataset
type ArtifactKey struct {
	Kind     string
	Table    string
	BinWidth float64
}

// String renders the key as kind/table/binwidth
func (k ArtifactKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Kind, k.Table, FormatBinWidth(k.BinWidth))
}

// FormatBinWidth renders a bin width the shortest way that parses back to the same value
func FormatBinWidth(bw float64) string {
	return strconv.FormatFloat(bw, 'g', -1, 64)
}

// Store persists datasets as CSV artifacts in a disk cache. Artifacts are write-once.
type Store struct {
	cache   *diskcache.Cache
	decoded *lru.Cache
}

// DefaultMemoized is the number of decoded datasets a Store keeps in memory
const DefaultMemoized = 32

// OpenStore opens (creating if needed) a store rooted at dir
func OpenStore(dir string) (*Store, error) {
	cache, err := diskcache.Open(dir, diskcache.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "error opening artifact store")
	}
	return NewStore(cache, DefaultMemoized)
}

// NewStore wraps a disk cache, memoizing up to size decoded datasets
func NewStore(cache *diskcache.Cache, size int) (*Store, error) {
	decoded, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Store{cache: cache, decoded: decoded}, nil
}

func (s *Store) key(k ArtifactKey) []byte {
	return []byte(k.String())
}

// Exists reports whether the artifact has been stored
func (s *Store) Exists(k ArtifactKey) bool {
	return s.cache.Exists(s.key(k))
}

// Put stores the dataset under k. The artifact becomes visible only once fully written;
// putting an existing artifact returns ErrExists and leaves it untouched.
func (s *Store) Put(k ArtifactKey, ds Dataset) error {
	if s.Exists(k) {
		return errors.Wrapf(ErrExists, "%s", k)
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, ds); err != nil {
		return errors.Wrapf(err, "error encoding %s", k)
	}
	if err := s.cache.Put(s.key(k), buf.Bytes()); err != nil {
		return errors.Wrapf(err, "error storing %s", k)
	}
	return nil
}

// Get loads the dataset stored under k
func (s *Store) Get(k ArtifactKey) (Dataset, error) {
	name := k.String()
	if v, ok := s.decoded.Get(name); ok {
		return v.(Dataset), nil
	}

	buf, err := s.cache.Get(s.key(k))
	if err != nil {
		return nil, errors.Wrapf(err, "error loading %s", k)
	}
	ds, err := ReadCSV(bytes.NewReader(buf))
	if err != nil {
		return nil, errors.Wrapf(err, "error decoding %s", k)
	}
	s.decoded.Add(name, ds)
	return ds, nil
}

// ModTime returns when the artifact was written
func (s *Store) ModTime(k ArtifactKey) (time.Time, error) {
	return s.cache.ModTime(s.key(k))
}

// Path returns the file backing the artifact
func (s *Store) Path(k ArtifactKey) string {
	return s.cache.Filename(s.key(k))
}
