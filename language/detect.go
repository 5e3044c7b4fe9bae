// Package language maps file paths to the search type names that scope an audit.
// Type names follow ripgrep's --type vocabulary so both search backends accept
// the same configuration.
package language

import (
	"path/filepath"
	"sort"
	"strings"
)

// TypeDef lists the file extensions (without dot, lowercase) and exact
// lowercase base names covered by one search type.
type TypeDef struct {
	Extensions []string
	Names      []string
}

// Types maps a search type name to its definition.
var Types = map[string]TypeDef{
	"rust":     {Extensions: []string{"rs"}},
	"go":       {Extensions: []string{"go"}},
	"json":     {Extensions: []string{"json", "jsonl", "sarif"}, Names: []string{"composer.lock"}},
	"markdown": {Extensions: []string{"md", "markdown", "mdx", "mkd", "mkdn", "mdown", "mdwn"}},
	"quarto":   {Extensions: []string{"qmd"}},
	"py":       {Extensions: []string{"py", "pyi"}},
	"js":       {Extensions: []string{"js", "jsx", "mjs", "cjs", "vue"}},
	"ts":       {Extensions: []string{"ts", "tsx", "mts", "cts"}},
	"lua":      {Extensions: []string{"lua"}},
	"yaml":     {Extensions: []string{"yaml", "yml"}},
	"toml":     {Extensions: []string{"toml"}, Names: []string{"cargo.lock"}},
	"c":        {Extensions: []string{"c", "h", "cats"}},
	"cpp":      {Extensions: []string{"cpp", "h", "cc", "cxx", "hpp", "hh", "hxx", "inl"}},
	"java":     {Extensions: []string{"java", "jsp"}},
	"sh":       {Extensions: []string{"sh", "bash", "zsh", "ksh"}, Names: []string{".bashrc", ".zshrc"}},
	"html":     {Extensions: []string{"html", "htm", "xhtml"}},
	"css":      {Extensions: []string{"css", "scss"}},
	"txt":      {Extensions: []string{"txt"}},
	"r":        {Extensions: []string{"r", "rmd", "rnw"}},
}

// KnownType reports whether name is a defined search type.
func KnownType(name string) bool {
	_, ok := Types[name]
	return ok
}

// TypeNames returns every defined type name, sorted.
func TypeNames() []string {
	names := make([]string, 0, len(Types))
	for name := range Types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DetectTypes returns the sorted type names covering filePath.
// A path may belong to several types (e.g. a .h file is both c and cpp).
func DetectTypes(filePath string) []string {
	base := strings.ToLower(filepath.Base(filePath))
	ext := strings.TrimPrefix(filepath.Ext(base), ".")

	var found []string
	for name, def := range Types {
		if matchesDef(def, base, ext) {
			found = append(found, name)
		}
	}
	sort.Strings(found)
	return found
}

// Matches reports whether filePath belongs to at least one of types.
// An empty type list matches every path.
func Matches(filePath string, types []string) bool {
	if len(types) == 0 {
		return true
	}
	base := strings.ToLower(filepath.Base(filePath))
	ext := strings.TrimPrefix(filepath.Ext(base), ".")
	for _, name := range types {
		if def, ok := Types[name]; ok && matchesDef(def, base, ext) {
			return true
		}
	}
	return false
}

func matchesDef(def TypeDef, base, ext string) bool {
	for _, n := range def.Names {
		if base == n {
			return true
		}
	}
	if ext == "" {
		return false
	}
	for _, e := range def.Extensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}
