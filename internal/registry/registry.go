// Package registry holds the ordered list of symbols a run works on.
package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

var (
	// ErrInvalidRegistry is returned when the symbol list breaks its
	// preconditions (empty or duplicate symbols, unreadable file).
	ErrInvalidRegistry = errors.New("invalid symbol registry")
	// ErrNotInRegistry is returned when a requested symbol is not listed.
	ErrNotInRegistry = errors.New("symbol not in registry")
)

// SymbolEntry is one configured ticker and its display sector.
type SymbolEntry struct {
	Symbol string `mapstructure:"symbol"`
	Sector string `mapstructure:"sector"`
}

// Registry is an immutable, ordered set of symbol entries.
type Registry struct {
	entries []SymbolEntry
	index   map[string]int
}

// New validates entries and builds a registry preserving their order.
func New(entries []SymbolEntry) (*Registry, error) {
	r := &Registry{
		entries: make([]SymbolEntry, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		if strings.TrimSpace(e.Symbol) == "" {
			return nil, fmt.Errorf("%w: entry %d has an empty symbol", ErrInvalidRegistry, i+1)
		}
		if e.Symbol != strings.TrimSpace(e.Symbol) {
			return nil, fmt.Errorf("%w: symbol %q has surrounding whitespace", ErrInvalidRegistry, e.Symbol)
		}
		if _, dup := r.index[e.Symbol]; dup {
			return nil, fmt.Errorf("%w: duplicate symbol %q", ErrInvalidRegistry, e.Symbol)
		}
		r.index[e.Symbol] = len(r.entries)
		r.entries = append(r.entries, e)
	}
	return r, nil
}

// Load reads a registry file of the form {"stocks": [{"symbol": ..., "sector": ...}]}.
// JSON and YAML are accepted, chosen by file extension.
func Load(fsys afero.Fs, path string) (*Registry, error) {
	v := viper.New()
	v.SetFs(fsys)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", ErrInvalidRegistry, path, err)
	}

	var file struct {
		Stocks []SymbolEntry `mapstructure:"stocks"`
	}
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s: %v", ErrInvalidRegistry, path, err)
	}
	if len(file.Stocks) == 0 {
		return nil, fmt.Errorf("%w: %s lists no stocks", ErrInvalidRegistry, path)
	}
	return New(file.Stocks)
}

// Len is the number of entries.
func (r *Registry) Len() int { return len(r.entries) }

// Entries returns a copy of the entries in registry order.
func (r *Registry) Entries() []SymbolEntry {
	out := make([]SymbolEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Symbols returns the symbols in registry order.
func (r *Registry) Symbols() []string {
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Symbol
	}
	return out
}

// Lookup finds the entry for symbol.
func (r *Registry) Lookup(symbol string) (SymbolEntry, bool) {
	i, ok := r.index[symbol]
	if !ok {
		return SymbolEntry{}, false
	}
	return r.entries[i], true
}

// Select narrows the registry to the given symbols. The result keeps registry
// order regardless of the order of symbols. An empty selection returns r.
func (r *Registry) Select(symbols []string) (*Registry, error) {
	if len(symbols) == 0 {
		return r, nil
	}

	wanted := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		if _, ok := r.index[s]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrNotInRegistry, s)
		}
		wanted[s] = true
	}

	var picked []SymbolEntry
	for _, e := range r.entries {
		if wanted[e.Symbol] {
			picked = append(picked, e)
		}
	}
	return New(picked)
}
