package strategy

import (
	"sort"
	"strings"
	"sync"

	"github.com/tidemill-labs/backtrack/pkg/errors"
)

// Constructor builds a fresh, uninitialized strategy instance.
type Constructor func() Strategy

// Registry maps strategy names to constructors. The built-in set is closed;
// Register exists for tests and embedding callers.
type Registry struct {
	constructors map[string]Constructor
	mu           sync.RWMutex
}

// NewRegistry creates a registry pre-populated with the built-in strategies.
func NewRegistry() *Registry {
	registry := &Registry{
		constructors: make(map[string]Constructor),
		mu:           sync.RWMutex{},
	}

	// Built-in names match the original CLI arguments.
	_ = registry.Register("golden_cross", func() Strategy { return NewGoldenCross() })
	_ = registry.Register("buy_hold", func() Strategy { return NewBuyHold() })
	_ = registry.Register("buy_dip", func() Strategy { return NewBuyTheDip() })
	_ = registry.Register("bbands", func() Strategy { return NewBollingerReversion() })
	_ = registry.Register("mean_reversion", func() Strategy { return NewMeanReversion() })

	return registry
}

// Register adds a strategy constructor under the given name.
func (r *Registry) Register(name string, constructor Constructor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.constructors[name]; exists {
		return errors.Newf(errors.ErrCodeInvalidParameter, "strategy %s already registered", name)
	}

	r.constructors[name] = constructor

	return nil
}

// Get constructs a fresh instance of the named strategy. Unknown names list
// the valid choices in the error.
func (r *Registry) Get(name string) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	constructor, exists := r.constructors[name]
	if !exists {
		return nil, errors.Newf(errors.ErrCodeStrategyNotFound,
			"unknown strategy %q, must be one of: %s", name, strings.Join(r.list(), ", "))
	}

	return constructor(), nil
}

// List returns the registered strategy names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.list()
}

func (r *Registry) list() []string {
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
