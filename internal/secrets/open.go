// internal/secrets/open.go
package secrets

import (
	"fmt"

	"github.com/avrabe/mcp-loxone/internal/core"
)

// Backend names accepted by Open.
const (
	BackendKeychain = "keychain"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendS3       = "s3"
	BackendMemory   = "memory"
)

// Backends lists every backend Open understands.
var Backends = []string{BackendKeychain, BackendFile, BackendSQLite, BackendS3, BackendMemory}

// Options selects and configures a backend.
type Options struct {
	Backend string
	Service string   // keychain
	Path    string   // file
	DSN     string   // sqlite
	S3      S3Config // s3
}

// Open builds the Store named by opts.Backend. Stores holding resources
// (sqlite) implement io.Closer.
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case BackendKeychain:
		return NewKeychain(opts.Service), nil
	case BackendFile:
		return NewFile(opts.Path)
	case BackendSQLite:
		return NewSQLite(opts.DSN)
	case BackendS3:
		return NewS3(opts.S3)
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown secrets backend %q", opts.Backend))
	}
}
