package serialization

import (
	"compress/gzip"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/golang/snappy"
	yaml "gopkg.in/yaml.v2"
)

// Encode writes the object to the path, using the format specified by the file
// extension, which can be .json, .gob, .yml, or .yaml. The path may additionally
// have a .gz or .sz suffix, in which case the stream will be gzip or snappy compressed.
func Encode(path string, obj interface{}) (err error) {
	enc, err := NewEncoder(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := enc.Close(); err == nil {
			err = cerr
		}
	}()
	return enc.Encode(obj)
}

// Encoder is an interface that matches gob.Encoder, json.Encoder, and yaml.Encoder
type Encoder interface {
	// Encode adds an item to the stream
	Encode(interface{}) error
}

// EncodeCloser is an encoder that can also close its underlying stream
type EncodeCloser struct {
	encoder Encoder
	closers []io.Closer
}

// Encode writes an object to the underlying stream
func (e *EncodeCloser) Encode(x interface{}) error {
	return e.encoder.Encode(x)
}

// Close closes the underlying stream
func (e *EncodeCloser) Close() error {
	var closeErr error
	// We must close in reverse order
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i].Close(); err != nil {
			closeErr = err
		}
	}
	return closeErr
}

// NewEncoder creates the specified path and returns an encoder that writes in the format
// specified by the file extension. See Encode for the supported extensions.
func NewEncoder(path string) (*EncodeCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	enc, err := WrapWriter(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	return enc, nil
}

// WrapWriter returns an encoder writing to w in the format implied by name.
// Closing the returned encoder closes w.
func WrapWriter(w io.WriteCloser, name string) (*EncodeCloser, error) {
	closers := []io.Closer{w}

	// Switch on compression
	switch {
	case strings.HasSuffix(name, ".gz"):
		name = strings.TrimSuffix(name, ".gz")
		w = gzip.NewWriter(w)
		closers = append(closers, w)
	case strings.HasSuffix(name, ".sz"):
		name = strings.TrimSuffix(name, ".sz")
		w = snappy.NewBufferedWriter(w)
		closers = append(closers, w)
	}

	// Switch on encoding
	var e Encoder
	switch {
	case strings.HasSuffix(name, ".json"):
		e = json.NewEncoder(w)
	case strings.HasSuffix(name, ".gob"):
		e = gob.NewEncoder(w)
	case strings.HasSuffix(name, ".yml"), strings.HasSuffix(name, ".yaml"):
		ye := yaml.NewEncoder(w)
		e = ye
		closers = append(closers, ye)
	default:
		return nil, fmt.Errorf("could not find encoder for %s", name)
	}

	return &EncodeCloser{
		encoder: e,
		closers: closers,
	}, nil
}
