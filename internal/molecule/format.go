// Package molecule holds the file format allowlist for the 3D viewer.
package molecule

import "strings"

// supportedTypes are the molecule formats the viewer can render. Matching is
// case-sensitive on purpose: upstream rejects ".PDB" and changing that would
// silently alter behavior for existing users.
var supportedTypes = map[string]struct{}{
	"pdb":  {},
	"sdf":  {},
	"mol2": {},
	"xyz":  {},
	"cube": {},
}

// IsSupported reports whether the filename carries a renderable extension.
// Files without a dot are unsupported.
func IsSupported(filename string) bool {
	pos := strings.LastIndex(filename, ".")
	if pos == -1 {
		return false
	}
	_, ok := supportedTypes[filename[pos+1:]]
	return ok
}
