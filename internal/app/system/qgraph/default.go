// internal/app/system/qgraph/default.go
package qgraph

import (
	_ "embed"
)

//go:embed default.yaml
var defaultYAML []byte

// DefaultImport returns the built-in "initial" question set, used to seed
// an empty deployment at startup. It panics on a malformed resource, which
// can only mean a build-time defect.
func DefaultImport() *ImportFile {
	f, err := ParseImport(defaultYAML)
	if err != nil {
		panic(err)
	}
	return f
}
