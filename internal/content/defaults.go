package content

import (
	_ "embed"
)

//go:embed defaults/content.json
var defaultDocument []byte

// DefaultJSON returns a copy of the document bundled with the binary.
func DefaultJSON() []byte {
	return append([]byte(nil), defaultDocument...)
}
