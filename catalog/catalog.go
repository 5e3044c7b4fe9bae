// Package catalog loads the error catalog: a document keyed by error code
// whose values describe each code. Only the keys take part in an audit.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/lexandro/errcode-audit/audit"
)

// ErrNotFound is returned when the catalog file does not exist.
var ErrNotFound = errors.New("error catalog not found")

// Formats accepted by Parse.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatTOML = "toml"
)

// Entry is the display view of a catalog value. Missing or non-string
// fields are left empty.
type Entry struct {
	Code            string `json:"code"`
	Subsystem       string `json:"subsystem,omitempty"`
	Title           string `json:"title,omitempty"`
	MessageTemplate string `json:"message_template,omitempty"`
	DocsURL         string `json:"docs_url,omitempty"`
	SinceVersion    string `json:"since_version,omitempty"`
}

// Catalog holds the parsed document. Values are kept as decoded.
type Catalog struct {
	Path    string
	entries map[string]any
}

// Load reads and parses the catalog at path, picking the format from the
// file extension. Unknown extensions are read as JSON.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}

	c, err := Parse(data, FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", path, err)
	}
	c.Path = path
	return c, nil
}

// FormatForPath maps a file extension to a catalog format.
func FormatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return FormatJSON
	}
}

// Parse decodes a catalog document. The top level must be a mapping.
func Parse(data []byte, format string) (*Catalog, error) {
	entries := make(map[string]any)
	switch format {
	case FormatJSON:
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.UseNumber()
		if err := decoder.Decode(&entries); err != nil {
			return nil, err
		}
		if _, err := decoder.Token(); err != io.EOF {
			return nil, errors.New("unexpected data after the catalog object")
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &entries); err != nil {
			return nil, err
		}
	case FormatTOML:
		if _, err := toml.Decode(string(data), &entries); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", format)
	}
	// A null document decodes into a nil map.
	if entries == nil {
		return nil, errors.New("catalog must be a mapping of codes, got null")
	}
	return &Catalog{entries: entries}, nil
}

// Len returns the number of codes in the catalog.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Codes returns the catalog's code set.
func (c *Catalog) Codes() audit.CodeSet {
	set := make(audit.CodeSet, len(c.entries))
	for code := range c.entries {
		set[code] = struct{}{}
	}
	return set
}

// Has reports whether code is a catalog key.
func (c *Catalog) Has(code string) bool {
	_, ok := c.entries[code]
	return ok
}

// Lookup returns the display entry for code.
func (c *Catalog) Lookup(code string) (Entry, bool) {
	value, ok := c.entries[code]
	if !ok {
		return Entry{}, false
	}
	entry := Entry{Code: code}
	fields, isMap := value.(map[string]any)
	if !isMap {
		return entry, true
	}
	entry.Subsystem = stringField(fields, "subsystem")
	entry.Title = stringField(fields, "title")
	entry.MessageTemplate = stringField(fields, "message_template")
	entry.DocsURL = stringField(fields, "docs_url")
	entry.SinceVersion = stringField(fields, "since_version")
	return entry, true
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}
