package lsp

import (
	"net/url"
	"path/filepath"
	"strings"
)

// uriScheme returns the scheme of uri, "file" for bare paths.
func uriScheme(uri string) string {
	parsed, err := url.Parse(uri)
	if err != nil || parsed.Scheme == "" {
		return "file"
	}
	// a Windows drive letter parses as a one-letter scheme
	if len(parsed.Scheme) == 1 {
		return "file"
	}
	return strings.ToLower(parsed.Scheme)
}

// uriToPath converts a file URI to an absolute path. Other schemes yield "".
func uriToPath(uri string) string {
	if uri == "" {
		return ""
	}
	if uriScheme(uri) != "file" {
		return ""
	}
	path := uri
	if parsed, err := url.Parse(uri); err == nil && strings.EqualFold(parsed.Scheme, "file") {
		path = parsed.Path
	}
	if unescaped, err := url.PathUnescape(path); err == nil {
		path = unescaped
	}
	// file:///C:/src -> C:/src
	if len(path) >= 3 && path[0] == '/' && path[2] == ':' {
		path = path[1:]
	}
	path = filepath.FromSlash(path)
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return path
}

func pathToURI(path string) string {
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	slashed := filepath.ToSlash(path)
	if !strings.HasPrefix(slashed, "/") {
		slashed = "/" + slashed
	}
	u := url.URL{Scheme: "file", Path: slashed}
	return u.String()
}

// canonicalURI normalizes file URIs so that one document has one key.
// Other schemes are kept verbatim.
func canonicalURI(uri string) string {
	if uri == "" || uriScheme(uri) != "file" {
		return uri
	}
	return pathToURI(uriToPath(uri))
}
