package lsp

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestURIRoundTrip(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix paths")
	}
	assert.Equal(t, "/src/my file.cpp", uriToPath("file:///src/my%20file.cpp"))
	assert.Equal(t, "file:///src/my%20file.cpp", pathToURI("/src/my file.cpp"))
	assert.Equal(t, "file:///src/a.cpp", canonicalURI("file:///src/./b/../a.cpp"))
}

func TestURIScheme(t *testing.T) {
	assert.Equal(t, "file", uriScheme("file:///a.cpp"))
	assert.Equal(t, "untitled", uriScheme("untitled:Untitled-1"))
	assert.Equal(t, "git", uriScheme("git:/a.cpp?ref"))
	assert.Equal(t, "file", uriScheme(filepath.Join("src", "a.cpp")))
	assert.Equal(t, "", uriToPath("untitled:Untitled-1"))
	assert.Equal(t, "untitled:Untitled-1", canonicalURI("untitled:Untitled-1"))
}
