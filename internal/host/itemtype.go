package host

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// FieldSpec declares one field of an item type.
type FieldSpec struct {
	Name       string              // Field name as it appears in input (CSV header)
	Label      string              // Display name
	Rules      string              // validator tag, e.g. "required,max=255"
	Normalizer func(string) string // Optional transformation applied before validation
}

// ItemType describes a kind of item the host stores.
type ItemType struct {
	Name   string // Type name as used in plans: "Computer"
	Label  string
	Group  string // Menu group: "Assets", "Administration"
	Fields []FieldSpec
}

// Key is the case-insensitive registry key.
func (t ItemType) Key() string { return strings.ToLower(t.Name) }

// Field returns the spec for name, if declared.
func (t ItemType) Field(name string) (FieldSpec, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// TypeRegistry holds item types by case-insensitive name.
type TypeRegistry struct {
	mu    sync.RWMutex
	types map[string]ItemType
}

// NewTypeRegistry returns an empty registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{types: make(map[string]ItemType)}
}

// DefaultTypes is populated by the itemtypes package at init.
var DefaultTypes = NewTypeRegistry()

// Register adds an item type.
// Panics if a type with the same name is already registered.
func (r *TypeRegistry) Register(t ItemType) {
	if err := r.TryRegister(t); err != nil {
		panic(err.Error())
	}
}

// TryRegister adds an item type, reporting duplicates instead of panicking.
func (r *TypeRegistry) TryRegister(t ItemType) error {
	if t.Name == "" {
		return fmt.Errorf("item type without name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[t.Key()]; exists {
		return fmt.Errorf("item type already registered: %s", t.Name)
	}
	if t.Label == "" {
		t.Label = t.Name
	}
	r.types[t.Key()] = t
	return nil
}

// Get returns an item type by name, ignoring case.
func (r *TypeRegistry) Get(name string) (ItemType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.types[strings.ToLower(name)]
	return t, ok
}

// All returns every item type sorted by group then name.
func (r *TypeRegistry) All() []ItemType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]ItemType, 0, len(r.types))
	for _, t := range r.types {
		result = append(result, t)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Group != result[j].Group {
			return result[i].Group < result[j].Group
		}
		return result[i].Name < result[j].Name
	})
	return result
}

// ByGroup returns the item types of one group sorted by name.
func (r *TypeRegistry) ByGroup(group string) []ItemType {
	var result []ItemType
	for _, t := range r.All() {
		if t.Group == group {
			result = append(result, t)
		}
	}
	return result
}

// Groups returns all unique group names, sorted.
func (r *TypeRegistry) Groups() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	for _, t := range r.types {
		seen[t.Group] = true
	}

	groups := make([]string, 0, len(seen))
	for g := range seen {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}

// Count returns the number of registered item types.
func (r *TypeRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}

// Clear removes all registered types.
// Primarily useful for testing.
func (r *TypeRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = make(map[string]ItemType)
}
