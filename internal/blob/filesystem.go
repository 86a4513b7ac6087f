package blob

import (
	"plicore/internal/infra/blob/fs"
)

// NewFilesystem constructs a store that writes artifacts below root.
func NewFilesystem(root string) (Store, error) {
	return fs.New(root)
}
