package ignore

// IgnoreFileNames are the per-repository ignore files loaded from the root
// directory, in gitignore syntax.
var IgnoreFileNames = []string{".gitignore", ".ignore", ".auditignore"}

// DefaultSkipDirs are directory names never descended into.
var DefaultSkipDirs = map[string]struct{}{
	".git":          {},
	".svn":          {},
	".hg":           {},
	"node_modules":  {},
	"__pycache__":   {},
	".venv":         {},
	".mypy_cache":   {},
	".pytest_cache": {},
}

// DefaultExcludes are exclusion globs applied when none are configured.
// They mirror the directories a source audit never wants to see: build
// output and vendored third-party trees.
var DefaultExcludes = []string{
	"**/target/**",
	"**/external-sources/**",
	"**/external-sites/**",
}
