package tidy

import (
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Workspace is the set of folder roots paths are made relative to before
// they are compared.
type Workspace struct {
	roots []string // normalized, longest first
}

// NewWorkspace returns a workspace over roots. Empty roots are ignored.
func NewWorkspace(roots ...string) Workspace {
	w := Workspace{}
	for _, r := range roots {
		if r == "" {
			continue
		}
		w.roots = append(w.roots, normalizePath(r))
	}
	sort.SliceStable(w.roots, func(i, j int) bool { return len(w.roots[i]) > len(w.roots[j]) })
	return w
}

// Roots returns the normalized roots.
func (w Workspace) Roots() []string {
	return append([]string(nil), w.roots...)
}

// Root returns the innermost root containing path.
func (w Workspace) Root(path string) (string, bool) {
	p := normalizePath(path)
	for _, root := range w.roots {
		if within(root, p) {
			return root, true
		}
	}
	return "", false
}

// Contains reports whether path lies inside any root.
func (w Workspace) Contains(path string) bool {
	_, ok := w.Root(path)
	return ok
}

// Relative returns path relative to its containing root in slash form.
// With several roots the root's base name is kept as a prefix so files
// from different folders never collide. Paths outside every root come
// back normalized but otherwise unchanged.
func (w Workspace) Relative(path string) string {
	p := normalizePath(path)
	for _, root := range w.roots {
		if !within(root, p) {
			continue
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(p, root), "/")
		if rel == "" {
			rel = "."
		}
		if len(w.roots) > 1 {
			rel = lastElem(root) + "/" + rel
		}
		return rel
	}
	return p
}

// Relevant reports whether d belongs to the document at docPath. A relative
// FilePath is resolved against the diagnostic's build directory first.
func Relevant(docPath string, d *Diagnostic, ws Workspace) bool {
	p := d.FilePath
	if !isAbs(p) && d.BuildDirectory != "" {
		p = filepath.Join(d.BuildDirectory, p)
	}
	return ws.Relative(docPath) == ws.Relative(p)
}

func within(root, p string) bool {
	if p == root {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return strings.HasPrefix(p, prefix)
}

func lastElem(p string) string {
	p = strings.TrimSuffix(p, "/")
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}

// normalizePath cleans p, switches to forward slashes, applies Unicode NFC
// and lower-cases a leading drive letter.
func normalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = filepath.ToSlash(filepath.Clean(filepath.FromSlash(p)))
	p = norm.NFC.String(p)
	if hasDrive(p) {
		p = strings.ToLower(p[:1]) + p[1:]
	}
	return p
}

func hasDrive(p string) bool {
	if len(p) < 2 || p[1] != ':' {
		return false
	}
	c := p[0]
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isAbs(p string) bool {
	return filepath.IsAbs(p) || strings.HasPrefix(p, "/") || (hasDrive(p) && len(p) > 2 && (p[2] == '/' || p[2] == '\\'))
}
