package tool

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/harunnryd/foodiebot/internal/geo"
	"github.com/harunnryd/foodiebot/internal/store"
)

// BuiltinOptions carries the collaborators built-in tool factories wire in.
// A nil collaborator makes the tools that need it fail softly at call time.
type BuiltinOptions struct {
	Store           *store.DB
	Menu            *store.MenuIndex
	Geocoder        geo.Geocoder
	HTTPClient      *http.Client
	WeatherBaseURL  string
	UserAgent       string
	SearchRadiusKM  float64
	DefaultLocation string
	Timeout         time.Duration
}

const (
	DefaultBuiltinWebTimeout = 10 * time.Second
	DefaultSearchRadiusKM    = 5.0
)

type BuiltinFactory func(options BuiltinOptions) (Tool, error)

var builtinCatalog = struct {
	mu        sync.RWMutex
	factories map[string]BuiltinFactory
}{
	factories: map[string]BuiltinFactory{},
}

// RegisterBuiltin registers a built-in tool factory under a tool name.
// Intended to be called in init() from built-in tool files.
func RegisterBuiltin(name string, factory BuiltinFactory) {
	normalized := NormalizeToolName(name)
	if normalized == "" {
		panic("tool: built-in name cannot be empty")
	}
	if factory == nil {
		panic(fmt.Sprintf("tool: built-in factory cannot be nil (%s)", normalized))
	}

	builtinCatalog.mu.Lock()
	defer builtinCatalog.mu.Unlock()

	if _, exists := builtinCatalog.factories[normalized]; exists {
		panic(fmt.Sprintf("tool: built-in already registered: %s", normalized))
	}
	builtinCatalog.factories[normalized] = factory
}

// BuiltinNames returns all registered built-in names in deterministic order.
func BuiltinNames() []string {
	builtinCatalog.mu.RLock()
	defer builtinCatalog.mu.RUnlock()

	names := make([]string, 0, len(builtinCatalog.factories))
	for name := range builtinCatalog.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsBuiltinName reports whether a tool name maps to a registered built-in tool.
func IsBuiltinName(name string) bool {
	normalized := NormalizeToolName(name)
	if normalized == "" {
		return false
	}

	builtinCatalog.mu.RLock()
	defer builtinCatalog.mu.RUnlock()
	_, ok := builtinCatalog.factories[normalized]
	return ok
}

// InstantiateBuiltins constructs all built-in tools using their registered factories.
func InstantiateBuiltins(options BuiltinOptions) ([]Tool, error) {
	names := BuiltinNames()

	builtinCatalog.mu.RLock()
	factories := make(map[string]BuiltinFactory, len(builtinCatalog.factories))
	for name, factory := range builtinCatalog.factories {
		factories[name] = factory
	}
	builtinCatalog.mu.RUnlock()

	tools := make([]Tool, 0, len(names))
	for _, name := range names {
		t, err := factories[name](options)
		if err != nil {
			return nil, fmt.Errorf("instantiate built-in %q: %w", name, err)
		}
		tools = append(tools, t)
	}

	return tools, nil
}

// NewBuiltinRegistry instantiates every built-in into a fresh Registry.
func NewBuiltinRegistry(options BuiltinOptions) (*Registry, error) {
	tools, err := InstantiateBuiltins(options)
	if err != nil {
		return nil, err
	}
	registry := NewRegistry()
	for _, t := range tools {
		registry.Register(t)
	}
	return registry, nil
}
