package sandbox

import "collab-lab/domain"

// languageSpec describes how a recognized language is run.
// The source file path is always appended as the last argument.
type languageSpec struct {
	binary    string
	args      []string
	extension string
}

func defaultLanguages(nodeBin, pythonBin string) map[domain.Language]languageSpec {
	return map[domain.Language]languageSpec{
		domain.JavaScript: {
			binary:    nodeBin,
			extension: "js",
		},
		domain.Python: {
			binary: pythonBin,
			// -I: isolated mode, ignores PYTHON* env vars and the user site directory
			args:      []string{"-I"},
			extension: "py",
		},
	}
}
