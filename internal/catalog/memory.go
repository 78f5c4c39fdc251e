package catalog

import (
	"context"
	"sync"

	"github.com/cloudpilot-labs/cost-governor/pkg/models"
)

// MemoryCatalog holds a fixed object listing for the simulator and tests.
type MemoryCatalog struct {
	mu         sync.Mutex
	containers map[string][]models.CatalogObject
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		containers: make(map[string][]models.CatalogObject),
	}
}

func (c *MemoryCatalog) Put(container string, objects ...models.CatalogObject) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.containers[container] = append(c.containers[container], objects...)
}

func (c *MemoryCatalog) Reset(container string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.containers, container)
}

func (c *MemoryCatalog) Walk(ctx context.Context, container string, fn func(obj models.CatalogObject) error) error {
	c.mu.Lock()
	objects, ok := c.containers[container]
	snapshot := make([]models.CatalogObject, len(objects))
	copy(snapshot, objects)
	c.mu.Unlock()

	if !ok {
		return ErrContainerNotFound
	}

	for _, obj := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(obj); err != nil {
			return err
		}
	}
	return nil
}

func (c *MemoryCatalog) Close() error {
	return nil
}
