// Package di provides the dependency-injection container used to wire
// engine collaborators together.
//
// Services register under a string id with one of three lifetimes:
// transient (new instance per resolve), singleton (constructed once,
// cached for the container's life), and scoped (cached per scope created
// with CreateScope). Registration is last-wins; resolving an unknown id
// or re-entering a resolution cycle fails with a resolution error.
package di

import (
	"fmt"
	"sync"

	"github.com/pageforge/pageforge/internal/errors"
)

// Lifetime controls how resolved instances are cached.
type Lifetime int

const (
	// Transient services produce a new instance on every resolve.
	Transient Lifetime = iota
	// Singleton services are constructed once and cached for the
	// container's life.
	Singleton
	// Scoped services are cached per scope container. Resolved outside
	// any scope they return a fresh, uncached instance each call.
	Scoped
)

// String returns the string representation of the lifetime.
func (l Lifetime) String() string {
	switch l {
	case Transient:
		return "transient"
	case Singleton:
		return "singleton"
	case Scoped:
		return "scoped"
	default:
		return "unknown"
	}
}

// Factory creates a service instance. The resolver passed in resolves
// dependencies within the same resolution chain so that cycles are
// detected.
type Factory func(r Resolver) (interface{}, error)

// Disposer releases a cached instance when the container is disposed.
type Disposer func(instance interface{})

// Resolver resolves services by id.
type Resolver interface {
	Resolve(id string) (interface{}, error)
}

// Registration describes a registered service.
type Registration struct {
	ID       string
	Factory  Factory
	Lifetime Lifetime
	Metadata map[string]interface{}
	Disposer Disposer
}

// Container is the dependency-injection container. The zero value is
// not usable; create instances with NewContainer.
type Container struct {
	mu            sync.RWMutex
	registrations map[string]*Registration
	singletons    map[string]interface{}
	scoped        map[string]interface{}
	root          *Container // nil on the root container
}

// ServiceBuilder configures a registration fluently.
type ServiceBuilder struct {
	container    *Container
	registration *Registration
}

// NewContainer creates a new root container.
func NewContainer() *Container {
	return &Container{
		registrations: make(map[string]*Registration),
		singletons:    make(map[string]interface{}),
	}
}

// Register registers a factory under id with a transient lifetime.
// Re-registering an id silently replaces the previous registration.
// The registrations map is shared between a root and its scopes, so
// all access goes through the root's mutex.
func (c *Container) Register(id string, factory Factory) *ServiceBuilder {
	reg := &Registration{
		ID:       id,
		Factory:  factory,
		Lifetime: Transient,
	}

	root := c.rootContainer()
	root.mu.Lock()
	root.registrations[id] = reg
	root.mu.Unlock()

	return &ServiceBuilder{container: c, registration: reg}
}

// RegisterSingleton registers a factory under id with a singleton
// lifetime.
func (c *Container) RegisterSingleton(id string, factory Factory) *ServiceBuilder {
	return c.Register(id, factory).AsSingleton()
}

// RegisterScoped registers a factory under id with a scoped lifetime.
func (c *Container) RegisterScoped(id string, factory Factory) *ServiceBuilder {
	return c.Register(id, factory).AsScoped()
}

// RegisterInstance registers an existing instance as a singleton.
func (c *Container) RegisterInstance(id string, instance interface{}) *ServiceBuilder {
	sb := c.Register(id, func(Resolver) (interface{}, error) {
		return instance, nil
	}).AsSingleton()

	// Singleton instances always live on the root cache.
	root := c.rootContainer()
	root.mu.Lock()
	root.singletons[id] = instance
	root.mu.Unlock()

	return sb
}

// AsSingleton marks the service as a singleton.
func (sb *ServiceBuilder) AsSingleton() *ServiceBuilder {
	root := sb.container.rootContainer()
	root.mu.Lock()
	sb.registration.Lifetime = Singleton
	root.mu.Unlock()
	return sb
}

// AsScoped marks the service as scoped.
func (sb *ServiceBuilder) AsScoped() *ServiceBuilder {
	root := sb.container.rootContainer()
	root.mu.Lock()
	sb.registration.Lifetime = Scoped
	root.mu.Unlock()
	return sb
}

// AsTransient marks the service as transient.
func (sb *ServiceBuilder) AsTransient() *ServiceBuilder {
	root := sb.container.rootContainer()
	root.mu.Lock()
	sb.registration.Lifetime = Transient
	root.mu.Unlock()
	return sb
}

// WithMetadata attaches a metadata entry to the registration.
func (sb *ServiceBuilder) WithMetadata(key string, value interface{}) *ServiceBuilder {
	root := sb.container.rootContainer()
	root.mu.Lock()
	if sb.registration.Metadata == nil {
		sb.registration.Metadata = make(map[string]interface{})
	}
	sb.registration.Metadata[key] = value
	root.mu.Unlock()
	return sb
}

// WithDisposer attaches a disposer invoked during Dispose for cached
// instances of this service.
func (sb *ServiceBuilder) WithDisposer(d Disposer) *ServiceBuilder {
	root := sb.container.rootContainer()
	root.mu.Lock()
	sb.registration.Disposer = d
	root.mu.Unlock()
	return sb
}

// Container returns the owning container for chained registration.
func (sb *ServiceBuilder) Container() *Container {
	return sb.container
}

// Has reports whether a service id is registered.
func (c *Container) Has(id string) bool {
	root := c.rootContainer()
	root.mu.RLock()
	defer root.mu.RUnlock()
	_, exists := root.registrations[id]
	return exists
}

// GetRegistration returns the registration for a service id.
func (c *Container) GetRegistration(id string) (*Registration, bool) {
	root := c.rootContainer()
	root.mu.RLock()
	defer root.mu.RUnlock()
	reg, exists := root.registrations[id]
	return reg, exists
}

// ListServices returns all registered service ids.
func (c *Container) ListServices() []string {
	root := c.rootContainer()
	root.mu.RLock()
	defer root.mu.RUnlock()

	ids := make([]string, 0, len(root.registrations))
	for id := range root.registrations {
		ids = append(ids, id)
	}
	return ids
}

// Resolve resolves a service by id.
func (c *Container) Resolve(id string) (interface{}, error) {
	return c.resolveWithChain(id, make(map[string]bool))
}

// MustResolve resolves a service and panics on failure.
func (c *Container) MustResolve(id string) interface{} {
	instance, err := c.Resolve(id)
	if err != nil {
		panic(fmt.Sprintf("failed to resolve service '%s': %v", id, err))
	}
	return instance
}

// chainResolver threads the resolution chain through nested factory
// calls so re-entrant resolutions are detected as cycles.
type chainResolver struct {
	container *Container
	resolving map[string]bool
}

func (r *chainResolver) Resolve(id string) (interface{}, error) {
	return r.container.resolveWithChain(id, r.resolving)
}

func (c *Container) resolveWithChain(id string, resolving map[string]bool) (interface{}, error) {
	if resolving[id] {
		return nil, errors.NewResolutionError(
			errors.ErrCodeCircularDependency,
			"circular dependency detected for service '"+id+"'",
			id,
		)
	}

	root := c.rootContainer()
	root.mu.RLock()
	reg, exists := root.registrations[id]
	root.mu.RUnlock()

	if !exists {
		return nil, errors.NewResolutionError(
			errors.ErrCodeNotRegistered,
			"service '"+id+"' not registered",
			id,
		)
	}

	switch reg.Lifetime {
	case Singleton:
		return c.resolveSingleton(reg, resolving)
	case Scoped:
		return c.resolveScoped(reg, resolving)
	default:
		return c.construct(reg, resolving)
	}
}

func (c *Container) resolveSingleton(reg *Registration, resolving map[string]bool) (interface{}, error) {
	// Singleton instances are cached on the root container so scopes
	// share them.
	owner := c.rootContainer()

	owner.mu.RLock()
	if instance, cached := owner.singletons[reg.ID]; cached {
		owner.mu.RUnlock()
		return instance, nil
	}
	owner.mu.RUnlock()

	instance, err := c.construct(reg, resolving)
	if err != nil {
		return nil, err
	}

	owner.mu.Lock()
	defer owner.mu.Unlock()
	// Another resolver may have won the race; keep the first instance.
	if cached, ok := owner.singletons[reg.ID]; ok {
		return cached, nil
	}
	owner.singletons[reg.ID] = instance
	return instance, nil
}

func (c *Container) resolveScoped(reg *Registration, resolving map[string]bool) (interface{}, error) {
	// Outside any scope a scoped service degrades to a fresh, uncached
	// instance per call rather than failing.
	if c.scoped == nil {
		return c.construct(reg, resolving)
	}

	c.mu.RLock()
	if instance, cached := c.scoped[reg.ID]; cached {
		c.mu.RUnlock()
		return instance, nil
	}
	c.mu.RUnlock()

	instance, err := c.construct(reg, resolving)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.scoped[reg.ID]; ok {
		return cached, nil
	}
	c.scoped[reg.ID] = instance
	return instance, nil
}

func (c *Container) construct(reg *Registration, resolving map[string]bool) (interface{}, error) {
	if reg.Factory == nil {
		return nil, errors.NewResolutionError(
			errors.ErrCodeNotRegistered,
			"service '"+reg.ID+"' has no factory",
			reg.ID,
		)
	}

	resolving[reg.ID] = true
	instance, err := reg.Factory(&chainResolver{container: c, resolving: resolving})
	delete(resolving, reg.ID)

	if err != nil {
		return nil, fmt.Errorf("failed to create service '%s': %w", reg.ID, err)
	}

	return instance, nil
}

// CreateScope creates a scope container sharing this container's
// registrations and singleton cache but with an isolated scoped-instance
// cache.
func (c *Container) CreateScope() *Container {
	root := c.rootContainer()

	root.mu.RLock()
	defer root.mu.RUnlock()

	return &Container{
		registrations: root.registrations,
		scoped:        make(map[string]interface{}),
		root:          root,
	}
}

func (c *Container) rootContainer() *Container {
	if c.root != nil {
		return c.root
	}
	return c
}

// Dispose invokes the disposer of every cached instance owned by this
// container (singletons on the root, scoped instances on a scope) and
// clears the caches. Registrations survive disposal.
func (c *Container) Dispose() {
	// Detach the caches first, then consult the shared registrations
	// under the root's mutex.
	c.mu.Lock()
	singletons := c.singletons
	scoped := c.scoped
	if c.singletons != nil {
		c.singletons = make(map[string]interface{})
	}
	if c.scoped != nil {
		c.scoped = make(map[string]interface{})
	}
	c.mu.Unlock()

	root := c.rootContainer()
	disposeAll := func(cache map[string]interface{}) {
		for id, instance := range cache {
			root.mu.RLock()
			reg, ok := root.registrations[id]
			root.mu.RUnlock()
			if ok && reg.Disposer != nil {
				reg.Disposer(instance)
			}
		}
	}
	disposeAll(singletons)
	disposeAll(scoped)
}
