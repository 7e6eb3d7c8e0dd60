package profile

import (
	"sync"

	"github.com/bindlab/bind/bind-golib/serialization"
)

// Source supplies distance profiles keyed by structure identifier
type Source interface {
	Profiles() (Profiles, error)
}

// FileSource reads profiles from a file written as {"id": [{"residue": ..., "atom_types": [...], "dists": [...]}]}.
// The format follows the extension, so distances.json.gz is read as gzipped JSON.
type FileSource struct {
	Path string
}

// Profiles implements Source
func (f FileSource) Profiles() (Profiles, error) {
	var p Profiles
	if err := serialization.Decode(f.Path, &p); err != nil {
		return nil, err
	}
	return p, nil
}

// MemorySource serves profiles already in memory
type MemorySource Profiles

// Profiles implements Source
func (m MemorySource) Profiles() (Profiles, error) {
	return Profiles(m), nil
}

// Lazy loads the profiles of a Source on first use and shares them between callers.
// Callers must treat the returned Profiles as read-only.
type Lazy struct {
	src Source

	lock     sync.RWMutex
	once     sync.Once
	profiles Profiles
	loadErr  error
}

// NewLazy wraps src
func NewLazy(src Source) *Lazy {
	return &Lazy{src: src}
}

// LoadAndLock ensures the profiles are loaded and locks against Unload until Unlock is called.
// Callers should immediately defer l.Unlock() after verifying that no error was returned.
func (l *Lazy) LoadAndLock() (Profiles, error) {
	// keep the read lock only when loading succeeded
	deferUnlock := true
	l.lock.RLock()
	defer func() {
		if deferUnlock {
			l.lock.RUnlock()
		}
	}()

	l.once.Do(func() { l.profiles, l.loadErr = l.src.Profiles() })
	if l.loadErr == nil {
		deferUnlock = false
	}
	return l.profiles, l.loadErr
}

// Unlock releases the lock taken by a successful LoadAndLock
func (l *Lazy) Unlock() {
	l.lock.RUnlock()
}

// Unload drops the loaded profiles; the next LoadAndLock reloads them.
func (l *Lazy) Unload() {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.once = sync.Once{}
	l.profiles = nil
	l.loadErr = nil
}

// Profiles implements Source by loading once and returning the shared profiles
func (l *Lazy) Profiles() (Profiles, error) {
	p, err := l.LoadAndLock()
	if err != nil {
		return nil, err
	}
	l.Unlock()
	return p, nil
}
