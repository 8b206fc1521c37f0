package schema

import (
	"context"

	derrors "leadconnect/pkg/domain-errors"
)

// Store loads schema rows from persistence. It is consulted exactly once,
// during startup.
type Store interface {
	ListEventSchemas(ctx context.Context) ([]EventSchema, error)
	GetProfileSchema(ctx context.Context) (*ProfileSchema, error)
}

// Registry is the read-only schema snapshot shared by the mapper and
// resolver. Load is awaited before the server accepts traffic, so requests
// never race an empty cache.
type Registry struct {
	byType  map[string]*EventSchema
	byID    map[int64]*EventSchema
	profile *ProfileSchema
}

// NewRegistry assembles a registry from already-decoded schemas. Tests use
// this directly; production goes through Load.
func NewRegistry(events []EventSchema, profile *ProfileSchema) *Registry {
	r := &Registry{
		byType:  make(map[string]*EventSchema, len(events)),
		byID:    make(map[int64]*EventSchema, len(events)),
		profile: profile,
	}
	for i := range events {
		es := &events[i]
		r.byID[es.ID] = es
		if es.Type != "" {
			r.byType[es.Type] = es
		}
	}
	return r
}

// Load fetches all event schemas and the profile schema and returns the
// immutable registry.
func Load(ctx context.Context, store Store) (*Registry, error) {
	events, err := store.ListEventSchemas(ctx)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "load event schemas")
	}
	profile, err := store.GetProfileSchema(ctx)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "load profile schema")
	}
	return NewRegistry(events, profile), nil
}

// ByType returns the event schema tagged with the given type.
func (r *Registry) ByType(eventType string) (*EventSchema, error) {
	if es, ok := r.byType[eventType]; ok {
		return es, nil
	}
	return nil, derrors.Newf(derrors.CodeSchemaNotFound, "no event schema for type %q", eventType)
}

// ByID returns the event schema with the given id.
func (r *Registry) ByID(id int64) (*EventSchema, error) {
	if es, ok := r.byID[id]; ok {
		return es, nil
	}
	return nil, derrors.Newf(derrors.CodeSchemaNotFound, "no event schema with id %d", id)
}

// Profile returns the profile field taxonomy.
func (r *Registry) Profile() *ProfileSchema {
	return r.profile
}

// Len reports how many event schemas the registry holds.
func (r *Registry) Len() int {
	return len(r.byID)
}
