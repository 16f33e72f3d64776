package checkpoint

import "fmt"

// Backend names accepted by Open
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Open returns the storage for the named backend rooted at dir
func Open(backend, dir string) (Storage, error) {
	switch backend {
	case "", BackendFile:
		return NewFileStorage(dir), nil
	case BackendSQLite:
		return OpenSQLite(dir)
	default:
		return nil, fmt.Errorf("unknown checkpoint backend %q", backend)
	}
}
