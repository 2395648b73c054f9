package bootstrap

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Well-known container names
const (
	InstanceConfig  = "config"
	InstanceLogger  = "logger"
	InstanceRuntime = "unit-context"
)

// DefaultContainer is a map of named singletons, created on first Resolve
type DefaultContainer struct {
	services  map[string]ServiceFactory
	instances map[string]interface{}
	mutex     sync.RWMutex
}

// NewContainer creates an empty container
func NewContainer() *DefaultContainer {
	return &DefaultContainer{
		services:  make(map[string]ServiceFactory),
		instances: make(map[string]interface{}),
	}
}

// Register registers a factory; the instance is created on first Resolve
func (c *DefaultContainer) Register(name string, factory ServiceFactory) error {
	if name == "" {
		return fmt.Errorf("service name cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("service factory cannot be nil")
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, exists := c.services[name]; exists {
		return fmt.Errorf("service %s is already registered", name)
	}
	c.services[name] = factory
	return nil
}

// RegisterInstance registers instance, replacing an earlier one of the same name
func (c *DefaultContainer) RegisterInstance(name string, instance interface{}) error {
	if name == "" {
		return fmt.Errorf("service name cannot be empty")
	}
	if instance == nil {
		return fmt.Errorf("service instance cannot be nil")
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.instances[name] = instance
	return nil
}

// Resolve returns the instance registered under name
func (c *DefaultContainer) Resolve(name string) (interface{}, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if instance, exists := c.instances[name]; exists {
		return instance, nil
	}

	factory, exists := c.services[name]
	if !exists {
		return nil, fmt.Errorf("service %s is not registered", name)
	}

	// factories may not resolve other names: the lock is held
	instance, err := factory(c)
	if err != nil {
		return nil, fmt.Errorf("failed to create service %s: %w", name, err)
	}
	c.instances[name] = instance
	return instance, nil
}

// Has checks if a name is registered
func (c *DefaultContainer) Has(name string) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	_, hasFactory := c.services[name]
	_, hasInstance := c.instances[name]
	return hasFactory || hasInstance
}

// Names returns all registered names, sorted
func (c *DefaultContainer) Names() []string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	nameSet := make(map[string]struct{}, len(c.services)+len(c.instances))
	for name := range c.services {
		nameSet[name] = struct{}{}
	}
	for name := range c.instances {
		nameSet[name] = struct{}{}
	}

	names := make([]string, 0, len(nameSet))
	for name := range nameSet {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve resolves name and asserts its type
func Resolve[T any](c Container, name string) (T, error) {
	var zero T
	instance, err := c.Resolve(name)
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, fmt.Errorf("service %s of type %T is not a %s", name, instance, reflect.TypeOf((*T)(nil)).Elem())
	}
	return typed, nil
}
