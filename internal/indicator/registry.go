package indicator

import (
	"sort"
	"sync"

	"github.com/tidemill-labs/backtrack/internal/types"
	"github.com/tidemill-labs/backtrack/pkg/errors"
)

// Registry resolves indicators by name. Every resolution yields a fresh
// instance, so strategies holding several windows of the same indicator
// configure them independently.
type Registry interface {
	RegisterIndicator(constructor func() Indicator) error
	NewIndicator(name types.IndicatorType) (Indicator, error)
	ListIndicators() []types.IndicatorType
}

// RegistryV1 maps indicator names to their constructors.
type RegistryV1 struct {
	constructors map[types.IndicatorType]func() Indicator
	mu           sync.RWMutex
}

// NewRegistry creates a registry pre-populated with the built-in indicators.
func NewRegistry() Registry {
	registry := &RegistryV1{
		constructors: make(map[types.IndicatorType]func() Indicator),
		mu:           sync.RWMutex{},
	}

	// Registration of built-ins cannot fail on an empty registry.
	_ = registry.RegisterIndicator(NewSMA)
	_ = registry.RegisterIndicator(NewStdDev)
	_ = registry.RegisterIndicator(NewBollingerBands)

	return registry
}

// RegisterIndicator adds an indicator constructor to the registry.
func (r *RegistryV1) RegisterIndicator(constructor func() Indicator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := constructor().Name()
	if _, exists := r.constructors[name]; exists {
		return errors.Newf(errors.ErrCodeIndicatorAlreadyExists, "indicator with name %s already registered", name)
	}

	r.constructors[name] = constructor

	return nil
}

// NewIndicator builds a fresh instance of the named indicator.
func (r *RegistryV1) NewIndicator(name types.IndicatorType) (Indicator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	constructor, exists := r.constructors[name]
	if !exists {
		return nil, errors.Newf(errors.ErrCodeIndicatorNotFound, "indicator with name %s not found", name)
	}

	return constructor(), nil
}

// ListIndicators returns the registered indicator names in sorted order.
func (r *RegistryV1) ListIndicators() []types.IndicatorType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]types.IndicatorType, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}

	sort.Slice(names, func(i, j int) bool {
		return names[i] < names[j]
	})

	return names
}
