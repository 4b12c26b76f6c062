package rules

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"gopkg.in/yaml.v3"
)

// ErrMalformedCatalog marks a catalog that cannot be used. It is a fatal
// configuration error: the engine refuses to start (or keeps the previous
// catalog on hot reload) rather than validating against bad rules.
var ErrMalformedCatalog = errors.New("malformed rule catalog")

// CatalogPattern matches the files in a catalog directory that hold
// jurisdiction overlays.
const CatalogPattern = "*.{yaml,yml}"

// LoadFile parses one jurisdiction overlay and merges it onto base.
func LoadFile(base *Catalog, path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	text, err := normalizeToUTF8(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedCatalog, path, err)
	}

	var overlay Catalog
	if err := yaml.Unmarshal([]byte(text), &overlay); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedCatalog, path, err)
	}

	merged := base.Merge(&overlay)
	if err := merged.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return merged, nil
}

// LoadDir overlays every catalog file in dir onto the defaults, in
// lexical order so the result is deterministic. A missing directory is
// not an error; the defaults apply.
func LoadDir(dir string) (*Catalog, error) {
	catalog := DefaultCatalog()

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return catalog, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ok, _ := doublestar.Match(CatalogPattern, e.Name()); ok {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		catalog, err = LoadFile(catalog, filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
	}
	return catalog, nil
}

// normalizeToUTF8 decodes a catalog file to UTF-8. Council documents get
// saved in whatever encoding the source system used; BOM-marked UTF-8
// and UTF-16 are handled, and anything that is not valid UTF-8 falls
// back to a Windows-1252 decode.
func normalizeToUTF8(data []byte) (string, error) {
	if len(data) >= 3 && bytes.Equal(data[:3], []byte{0xEF, 0xBB, 0xBF}) {
		return string(data[3:]), nil
	}

	if len(data) >= 2 {
		if bytes.Equal(data[:2], []byte{0xFF, 0xFE}) {
			return decodeWith(data[2:], unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM))
		}
		if bytes.Equal(data[:2], []byte{0xFE, 0xFF}) {
			return decodeWith(data[2:], unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM))
		}
	}

	if utf8.Valid(data) {
		return string(data), nil
	}

	return decodeWith(data, charmap.Windows1252)
}

func decodeWith(data []byte, enc encoding.Encoding) (string, error) {
	reader := transform.NewReader(bytes.NewReader(data), enc.NewDecoder())
	out, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
