package serialization

import (
	"compress/bzip2"
	"compress/gzip"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/golang/snappy"
	yaml "gopkg.in/yaml.v2"
)

// Decoder is an interface that matches gob.Decoder, json.Decoder, and yaml.Decoder
type Decoder interface {
	// Decode extracts an object from the stream
	Decode(interface{}) error
}

// ErrStop is a special value returned from handlers to cease processing
var ErrStop = errors.New("stop processing requested")

// decodeWith with extracts objects from the given decoder and passes them to the handler
func decodeWith(d Decoder, elemType reflect.Type, handler func(interface{}) error) error {
	for {
		elem := reflect.New(elemType).Interface()
		err := d.Decode(elem)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		err = handler(elem)
		if err == ErrStop {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Decode loads objects from a file. If the path ends with .gz, .bz2 or .sz then
// the contents will be decompressed. The encoding is then determined by the remaining file
// extension, which can be .json, .gob, .yml or .yaml.
//
// handler is either a pointer, which receives the first object in the file, or a
// function taking a pointer, which is called once per object:
//
//   var profiles profile.Profiles
//   err := serialization.Decode("/data/distances.json.gz", &profiles)
func Decode(path string, handler interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error loading %s: %v", path, err)
	}
	defer f.Close()
	return DecodeReader(f, path, handler)
}

// DecodeReader works like Decode but reads from r, using name to pick the format.
func DecodeReader(r io.Reader, name string, handler interface{}) error {
	inpath := name

	// Switch on compression
	switch {
	case strings.HasSuffix(name, ".gz"):
		name = strings.TrimSuffix(name, ".gz")
		gz, err := gzip.NewReader(r)
		if err != nil {
			return fmt.Errorf("error opening gzip stream for %s: %v", inpath, err)
		}
		defer gz.Close()
		r = gz
	case strings.HasSuffix(name, ".bz2"):
		name = strings.TrimSuffix(name, ".bz2")
		r = bzip2.NewReader(r)
	case strings.HasSuffix(name, ".sz"):
		name = strings.TrimSuffix(name, ".sz")
		r = snappy.NewReader(r)
	}

	// Switch on encoding
	var d Decoder
	switch {
	case strings.HasSuffix(name, ".json"):
		d = json.NewDecoder(r)
	case strings.HasSuffix(name, ".gob"):
		d = gob.NewDecoder(r)
	case strings.HasSuffix(name, ".yml"), strings.HasSuffix(name, ".yaml"):
		d = yaml.NewDecoder(r)
	default:
		return fmt.Errorf("could not find decoder for %s", inpath)
	}

	// Examine the function signature
	f := reflect.ValueOf(handler)

	if f.Kind() == reflect.Ptr {
		if err := d.Decode(handler); err != nil {
			return fmt.Errorf("error decoding %s: %v", inpath, err)
		}
		return nil
	}
	if f.Kind() != reflect.Func {
		panic("expected a function or a pointer as last parameter")
	}

	funcType := f.Type()
	if funcType.NumIn() != 1 {
		panic("expected a function with one input parameter")
	}
	if funcType.NumOut() > 1 {
		panic("expected a function with zero or one output parameter")
	}
	ptrType := funcType.In(0)
	if ptrType.Kind() != reflect.Ptr {
		panic("expected function parameter to be a pointer")
	}
	elemType := ptrType.Elem()

	// Do the actual decoding
	err := decodeWith(d, elemType, func(x interface{}) error {
		ret := f.Call([]reflect.Value{reflect.ValueOf(x)})
		if len(ret) == 0 || ret[0].IsNil() {
			return nil
		}
		return ret[0].Interface().(error)
	})
	if err != nil {
		return fmt.Errorf("error decoding %s: %v", inpath, err)
	}
	return nil
}
