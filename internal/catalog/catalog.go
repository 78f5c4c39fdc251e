package catalog

import (
	"context"
	"errors"

	"github.com/cloudpilot-labs/cost-governor/pkg/models"
)

var (
	ErrListFailed        = errors.New("object listing failed")
	ErrContainerNotFound = errors.New("container not found")
)

// Catalog yields object identities with age and size for a storage
// container. Listings are paginated at the backend but presented as a
// single finite walk; the callback is invoked once per object and a
// non-nil return stops the walk.
type Catalog interface {
	Walk(ctx context.Context, container string, fn func(obj models.CatalogObject) error) error

	// Close releases resources
	Close() error
}
