package lint

import (
	"path/filepath"
	"strings"

	"github.com/go-enry/go-enry/v2"
)

// Language identifiers as editors report them.
const (
	LanguageC   = "c"
	LanguageCPP = "cpp"
)

var headerExts = map[string]string{
	".h":   LanguageC,
	".hh":  LanguageCPP,
	".hpp": LanguageCPP,
	".hxx": LanguageCPP,
	".inl": LanguageCPP,
}

// DetectLanguage returns the editor language id for path, looking at the
// content when the extension is ambiguous. Unknown files yield "".
func DetectLanguage(path string, content []byte) string {
	name := filepath.Base(path)
	lang := enry.GetLanguage(name, content)
	if lang == "" {
		lang, _ = enry.GetLanguageByExtension(name)
	}
	switch lang {
	case "C":
		return LanguageC
	case "C++":
		return LanguageCPP
	case "Objective-C", "Objective-C++":
		if id, ok := headerExts[strings.ToLower(filepath.Ext(name))]; ok {
			return id
		}
		return strings.ToLower(strings.ReplaceAll(lang, "+", "p"))
	case "":
		return headerExts[strings.ToLower(filepath.Ext(name))]
	}
	return strings.ToLower(lang)
}
