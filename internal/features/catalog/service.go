package catalog

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type CatalogService interface {
	ListEntities(ctx context.Context) ([]EntityDescriptor, error)
	ListFields(ctx context.Context, entityName string) ([]FieldDescriptor, error)
	// Invalidate drops cached catalog state. Called when the whitelist changes
	// (i.e. on deploy of a new registry), not on data writes.
	Invalidate(ctx context.Context) error
}

type CatalogServiceImpl struct {
	Registry *Registry
	cache    *entityCache
}

func NewCatalogService(registry *Registry, client *redis.Client) CatalogService {
	return &CatalogServiceImpl{
		Registry: registry,
		cache:    &entityCache{client: client, ttl: 12 * time.Hour},
	}
}

func (s *CatalogServiceImpl) ListEntities(ctx context.Context) ([]EntityDescriptor, error) {
	if entities, ok := s.cache.get(ctx); ok {
		return entities, nil
	}
	entities := s.Registry.Entities()
	s.cache.set(ctx, entities)
	return entities, nil
}

func (s *CatalogServiceImpl) ListFields(ctx context.Context, entityName string) ([]FieldDescriptor, error) {
	return s.Registry.Fields(entityName)
}

func (s *CatalogServiceImpl) Invalidate(ctx context.Context) error {
	return s.cache.invalidate(ctx)
}
