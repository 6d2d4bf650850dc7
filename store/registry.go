// Package store persists contract storage for hosts. Backends register a
// constructor under a Type and are created by name with free-form
// parameters, so a host can be configured from a file.
package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/govm-net/guestenv/core"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store closed")

// Store holds the key/value storage of every contract.
type Store interface {
	// Get returns the value under key and whether it exists.
	Get(contract core.AccountID, key []byte) ([]byte, bool, error)
	// Set stores value under key.
	Set(contract core.AccountID, key, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(contract core.AccountID, key []byte) error
	Close() error
}

// Type names a storage backend.
type Type string

const (
	// MemoryType keeps everything in process memory.
	MemoryType Type = "memory"
	// DBType persists to a SQLite database.
	DBType Type = "db"
)

// Constructor creates a store from backend specific parameters.
type Constructor func(params map[string]any) (Store, error)

// Registry manages the available backends.
type Registry interface {
	// Register adds a backend. Registering a type twice fails.
	Register(t Type, constructor Constructor) error
	// SetDefault sets the type Get falls back to.
	SetDefault(t Type) error
	// Get creates a store of type t.
	Get(t Type, params map[string]any) (Store, error)
	// DefaultType returns the default backend type.
	DefaultType() Type
	// ListRegistered returns the registered types in sorted order.
	ListRegistered() []Type
}

type registry struct {
	mu           sync.RWMutex
	constructors map[Type]Constructor
	defaultType  Type
}

var defaultRegistry Registry = NewRegistry()

// NewRegistry returns an empty registry.
func NewRegistry() Registry {
	return &registry{constructors: make(map[Type]Constructor)}
}

// GetRegistry returns the process wide registry backends register with.
func GetRegistry() Registry {
	return defaultRegistry
}

func (r *registry) Register(t Type, constructor Constructor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.constructors[t]; exists {
		return fmt.Errorf("store type %s already registered", t)
	}
	r.constructors[t] = constructor
	return nil
}

func (r *registry) SetDefault(t Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.constructors[t]; !exists {
		return fmt.Errorf("store type %s not registered", t)
	}
	r.defaultType = t
	return nil
}

func (r *registry) Get(t Type, params map[string]any) (Store, error) {
	if t == "" {
		t = r.DefaultType()
	}
	r.mu.RLock()
	constructor, exists := r.constructors[t]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("store type %s not found", t)
	}
	if params == nil {
		params = make(map[string]any)
	}
	return constructor(params)
}

func (r *registry) DefaultType() Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.defaultType == "" {
		return MemoryType
	}
	return r.defaultType
}

func (r *registry) ListRegistered() []Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]Type, 0, len(r.constructors))
	for t := range r.constructors {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Register adds a backend to the process wide registry.
func Register(t Type, constructor Constructor) error {
	return GetRegistry().Register(t, constructor)
}

// SetDefault sets the default backend of the process wide registry.
func SetDefault(t Type) error {
	return GetRegistry().SetDefault(t)
}

// Get creates a store from the process wide registry. An empty type
// selects the default.
func Get(t Type, params map[string]any) (Store, error) {
	return GetRegistry().Get(t, params)
}

// ListRegistered lists the backends of the process wide registry.
func ListRegistered() []Type {
	return GetRegistry().ListRegistered()
}
