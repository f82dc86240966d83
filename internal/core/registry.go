package core

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[RecordType]Schema)
	registryMu sync.RWMutex
)

// Register adds a schema to the registry.
// Panics if the schema is malformed or its record type is already registered.
func Register(s Schema) {
	if err := checkSchema(s); err != nil {
		panic(err.Error())
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[s.Type]; exists {
		panic(fmt.Sprintf("schema already registered: %s", s.Type))
	}

	// Populate RequiredFields from rules if not set
	if len(s.RequiredFields) == 0 {
		for _, r := range s.Rules {
			if r.Required {
				s.RequiredFields = append(s.RequiredFields, r.Name)
			}
		}
	}

	if s.Label == "" {
		s.Label = string(s.Type)
	}

	registry[s.Type] = s
}

func checkSchema(s Schema) error {
	if s.Type == "" {
		return fmt.Errorf("schema has no record type")
	}
	if _, ok := s.Rule(s.IdentifierField); !ok {
		return fmt.Errorf("schema %s: identifier field %q has no rule", s.Type, s.IdentifierField)
	}

	seen := make(map[string]bool, len(s.Rules))
	for _, r := range s.Rules {
		if seen[r.Name] {
			return fmt.Errorf("schema %s: duplicate rule %q", s.Type, r.Name)
		}
		seen[r.Name] = true
		if r.Kind == KindEnum && len(r.EnumValues) == 0 {
			return fmt.Errorf("schema %s: enum rule %q has no values", s.Type, r.Name)
		}
	}

	for _, h := range s.RequiredHeaders {
		if !seen[h] {
			return fmt.Errorf("schema %s: required header %q has no rule", s.Type, h)
		}
	}

	for i, ex := range s.Examples {
		if len(ex) != len(s.Rules) {
			return fmt.Errorf("schema %s: example %d has %d cells, want %d", s.Type, i+1, len(ex), len(s.Rules))
		}
	}
	return nil
}

// SchemaFor returns the schema for a record type.
// Returns false if not found.
func SchemaFor(rt RecordType) (Schema, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	s, ok := registry[rt]
	return s, ok
}

// LookupSchema resolves a raw record type name to its registered schema.
func LookupSchema(name string) (Schema, error) {
	rt, err := ParseRecordType(name)
	if err != nil {
		return Schema{}, err
	}
	s, ok := SchemaFor(rt)
	if !ok {
		return Schema{}, fmt.Errorf("%w: %q is not registered", ErrUnknownRecordType, name)
	}
	return s, nil
}

// RecordTypes returns all registered record types, sorted by name.
func RecordTypes() []RecordType {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]RecordType, 0, len(registry))
	for rt := range registry {
		result = append(result, rt)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i] < result[j]
	})
	return result
}

// Schemas returns all registered schemas in RecordTypes order.
func Schemas() []Schema {
	types := RecordTypes()

	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Schema, 0, len(types))
	for _, rt := range types {
		result = append(result, registry[rt])
	}
	return result
}

// Clear removes all registered schemas.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[RecordType]Schema)
}
