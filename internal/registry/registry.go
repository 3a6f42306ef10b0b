// Package registry manages render plugins for the composition engine.
//
// The registry holds at most one plugin per node type, compiles each
// plugin's params schema at registration, and gates rendering through an
// optional allowlist of permitted plugin ids. The allowlist is an
// immutable snapshot swapped wholesale so renders in flight observe
// either the previous or the next set, never a partial one.
package registry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/pageforge/pageforge/internal/errors"
	"github.com/pageforge/pageforge/internal/plugins"
)

// EventType identifies a registry lifecycle event.
type EventType string

const (
	EventRegister         EventType = "register"
	EventAllowlistChanged EventType = "allowlistChanged"
)

// Event is delivered synchronously to listeners when the registry
// changes.
type Event struct {
	Type      EventType
	PluginID  string
	Allowlist []string // nil when the allowlist was cleared
	Timestamp time.Time
}

// Listener receives registry events. Listener panics are recovered and
// dropped; they never abort the triggering operation.
type Listener func(event Event)

// DefinitionsRepository supplies the set of active plugin ids from an
// external source. A nil result means unrestricted.
type DefinitionsRepository interface {
	ListActivePluginIDs(ctx context.Context) ([]string, error)
}

// Registration records one registered plugin together with its compiled
// params schema. Registrations are owned by the registry for its
// lifetime.
type Registration struct {
	Plugin       plugins.Plugin
	Metadata     map[string]interface{}
	RegisteredAt time.Time

	schema *gojsonschema.Schema
}

// allowlist is an immutable permitted-id set. A nil *allowlist means
// unrestricted.
type allowlist struct {
	ids map[string]struct{}
}

// PluginRegistry holds render plugins by node type id.
type PluginRegistry struct {
	mu            sync.RWMutex
	registrations map[string]*Registration
	listeners     []Listener
	allowed       atomic.Pointer[allowlist]
	definitions   DefinitionsRepository
}

// Option configures a PluginRegistry.
type Option func(*PluginRegistry)

// WithDefinitionsRepository injects the repository consulted by
// LoadAllowlistFromRepo.
func WithDefinitionsRepository(repo DefinitionsRepository) Option {
	return func(r *PluginRegistry) {
		r.definitions = repo
	}
}

// NewPluginRegistry creates an empty registry with no allowlist
// (all plugins permitted).
func NewPluginRegistry(opts ...Option) *PluginRegistry {
	r := &PluginRegistry{
		registrations: make(map[string]*Registration),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a plugin. It fails when the id is empty or already
// registered, or when the declared params schema does not compile.
func (r *PluginRegistry) Register(plugin plugins.Plugin, metadata map[string]interface{}) error {
	if plugin == nil {
		return errors.NewRegistryError(errors.ErrCodeInvalidPlugin, "plugin is nil")
	}

	id := plugin.ID()
	if id == "" {
		return errors.NewRegistryError(errors.ErrCodeInvalidPlugin, "plugin id is required")
	}
	if f, ok := plugin.(*plugins.Func); ok && f.RenderFunc == nil {
		return errors.NewRegistryError(errors.ErrCodeInvalidPlugin, "plugin has no render function").WithPlugin(id)
	}

	var schema *gojsonschema.Schema
	if raw := plugin.Schema(); len(raw) > 0 {
		compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			return errors.NewRegistryError(errors.ErrCodeInvalidSchema, "plugin params schema does not compile").
				WithPlugin(id).WithCause(err)
		}
		schema = compiled
	}

	r.mu.Lock()
	if _, exists := r.registrations[id]; exists {
		r.mu.Unlock()
		return errors.NewRegistryError(errors.ErrCodeDuplicatePlugin, "plugin already registered").WithPlugin(id)
	}
	r.registrations[id] = &Registration{
		Plugin:       plugin,
		Metadata:     metadata,
		RegisteredAt: time.Now(),
		schema:       schema,
	}
	r.mu.Unlock()

	r.emit(Event{Type: EventRegister, PluginID: id, Timestamp: time.Now()})
	return nil
}

// Has reports whether a plugin id is registered.
func (r *PluginRegistry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.registrations[id]
	return exists
}

// Get retrieves a plugin by id.
func (r *PluginRegistry) Get(id string) (plugins.Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, exists := r.registrations[id]
	if !exists {
		return nil, false
	}
	return reg.Plugin, true
}

// GetRegistration retrieves the full registration record for a plugin.
func (r *PluginRegistry) GetRegistration(id string) (*Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, exists := r.registrations[id]
	return reg, exists
}

// List returns the ids of all registered plugins.
func (r *PluginRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.registrations))
	for id := range r.registrations {
		ids = append(ids, id)
	}
	return ids
}

// Count returns the number of registered plugins.
func (r *PluginRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.registrations)
}

// SetAllowlist replaces the permitted plugin set wholesale. A nil slice
// clears the allowlist, permitting every plugin.
func (r *PluginRegistry) SetAllowlist(ids []string) {
	if ids == nil {
		r.allowed.Store(nil)
		r.emit(Event{Type: EventAllowlistChanged, Timestamp: time.Now()})
		return
	}

	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	r.allowed.Store(&allowlist{ids: set})

	snapshot := make([]string, len(ids))
	copy(snapshot, ids)
	r.emit(Event{Type: EventAllowlistChanged, Allowlist: snapshot, Timestamp: time.Now()})
}

// LoadAllowlistFromRepo replaces the allowlist with the active plugin
// ids reported by the injected definitions repository. A nil result
// clears the allowlist. Failures are returned without retrying.
func (r *PluginRegistry) LoadAllowlistFromRepo(ctx context.Context) error {
	if r.definitions == nil {
		return errors.NewRegistryError(errors.ErrCodeInvalidPlugin, "no plugin definitions repository configured")
	}

	ids, err := r.definitions.ListActivePluginIDs(ctx)
	if err != nil {
		return errors.NewRegistryError(errors.ErrCodeInvalidPlugin, "loading allowlist from repository").WithCause(err)
	}

	r.SetAllowlist(ids)
	return nil
}

// IsAllowed reports whether a plugin id may render. With no allowlist
// configured every id is allowed, including unregistered ones.
func (r *PluginRegistry) IsAllowed(id string) bool {
	snapshot := r.allowed.Load()
	if snapshot == nil {
		return true
	}
	_, ok := snapshot.ids[id]
	return ok
}

// Allowlist returns the current permitted ids, or nil when
// unrestricted.
func (r *PluginRegistry) Allowlist() []string {
	snapshot := r.allowed.Load()
	if snapshot == nil {
		return nil
	}

	ids := make([]string, 0, len(snapshot.ids))
	for id := range snapshot.ids {
		ids = append(ids, id)
	}
	return ids
}

// ValidateParams validates params against the plugin's compiled schema.
// Plugins without a schema validate trivially. Unregistered ids fail.
func (r *PluginRegistry) ValidateParams(id string, params map[string]interface{}) error {
	r.mu.RLock()
	reg, exists := r.registrations[id]
	r.mu.RUnlock()

	if !exists {
		return errors.NewRegistryError(errors.ErrCodeInvalidPlugin, "plugin not registered").WithPlugin(id)
	}
	if reg.schema == nil {
		return nil
	}

	if params == nil {
		params = map[string]interface{}{}
	}

	result, err := reg.schema.Validate(gojsonschema.NewGoLoader(params))
	if err != nil {
		return errors.NewRegistryError(errors.ErrCodeParamsInvalid, "validating plugin params").
			WithPlugin(id).WithCause(err)
	}

	if !result.Valid() {
		violations := make([]errors.Violation, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			violations = append(violations, errors.Violation{
				Path:    desc.Field(),
				Message: desc.Description(),
			})
		}
		return errors.NewRegistryError(errors.ErrCodeParamsInvalid, "plugin params do not conform to schema").
			WithPlugin(id).WithViolations(violations)
	}

	return nil
}

// OnEvent subscribes a listener to registry events.
func (r *PluginRegistry) OnEvent(listener Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, listener)
}

// emit delivers an event synchronously and best-effort: a panicking
// listener is recovered and skipped.
func (r *PluginRegistry) emit(event Event) {
	r.mu.RLock()
	listeners := make([]Listener, len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.RUnlock()

	for _, listener := range listeners {
		func() {
			defer func() {
				_ = recover()
			}()
			listener(event)
		}()
	}
}
