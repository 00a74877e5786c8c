package diagfmt

import (
	"tidyls/internal/diag"
	"tidyls/internal/source"
)

const sampleSource = "int main() {\n  int *p = NULL;\n}\n"

func sampleSet() *source.FileSet {
	fs := source.NewFileSet()
	fs.AddVirtual("src/a.cpp", []byte(sampleSource))
	return fs
}

func nullptrDiag() diag.Diagnostic {
	return diag.Diagnostic{
		Path: "src/a.cpp",
		Range: source.Range{
			Start: source.Position{Line: 1, Character: 11},
			End:   source.Position{Line: 1, Character: 15},
		},
		Message:  "use nullptr",
		Severity: diag.SevWarning,
		Source:   diag.SourceClangTidy,
		Name:     "modernize-use-nullptr",
		Fix:      &diag.FixPayload{ReplacementText: "nullptr", Offset: 24, Length: 4},
	}
}

func lineDiag() diag.Diagnostic {
	return diag.Diagnostic{
		Path:     "src/a.cpp",
		Range:    source.LineRange(0),
		Message:  "function 'main' is too complex",
		Severity: diag.SevError,
		Source:   diag.SourceClangTidy,
		Name:     "readability-function-size",
	}
}

func sampleBag(ds ...diag.Diagnostic) *diag.Bag {
	bag := diag.NewBag(0)
	bag.AddAll(ds)
	return bag
}
