package service

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/actuallystonmai/recommendation-engine/internal/strategy"
)

type registration struct {
	canonical string
	ctor      strategy.Constructor
}

// Registry maps case-insensitive algorithm names and their aliases to
// strategy constructors. It is built at startup and handed to the service.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]registration
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]registration)}
}

// DefaultRegistry registers the built-in strategies.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(strategy.NameRandom, func(d strategy.Deps, c strategy.Config) strategy.Strategy {
		return strategy.NewRandom(d, c)
	})
	r.MustRegister(strategy.NamePopularity, func(d strategy.Deps, c strategy.Config) strategy.Strategy {
		return strategy.NewPopularity(d, c)
	}, "mostpopular")
	r.MustRegister(strategy.NameItemCF, func(d strategy.Deps, c strategy.Config) strategy.Strategy {
		return strategy.NewItemCF(d, c)
	}, "item_cf")
	return r
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds ctor under name and every alias. Re-registering a name
// replaces the previous constructor.
func (r *Registry) Register(name string, ctor strategy.Constructor, aliases ...string) error {
	canonical := normalize(name)
	if canonical == "" {
		return fmt.Errorf("register algorithm: empty name")
	}
	if ctor == nil {
		return fmt.Errorf("register algorithm %q: nil constructor", canonical)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	reg := registration{canonical: canonical, ctor: ctor}
	r.entries[canonical] = reg
	for _, alias := range aliases {
		if a := normalize(alias); a != "" {
			r.entries[a] = reg
		}
	}
	return nil
}

func (r *Registry) MustRegister(name string, ctor strategy.Constructor, aliases ...string) {
	if err := r.Register(name, ctor, aliases...); err != nil {
		panic(err)
	}
}

// Resolve returns the canonical name and constructor registered for name.
func (r *Registry) Resolve(name string) (string, strategy.Constructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.entries[normalize(name)]
	if !ok {
		return "", nil, false
	}
	return reg.canonical, reg.ctor, true
}

// Names lists every registered name, aliases included, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
