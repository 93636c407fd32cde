// pkg/registry/registry.go
package registry

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"pos-interpreter/internal/models"
)

//go:embed action-registry.json
var defaultRegistryJSON []byte

var (
	ErrUnknownAction     = errors.New("UNKNOWN_ACTION")
	ErrContractViolation = errors.New("CONTRACT_VIOLATION")
)

// Registry is a loaded action registry plus its compiled param schemas.
type Registry struct {
	ActionRegistry

	mu       sync.RWMutex
	compiled map[string]*jsonschema.Schema
}

// Load reads and compiles a registry file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes and compiles registry JSON.
func Parse(data []byte) (*Registry, error) {
	var reg Registry
	if err := json.Unmarshal(data, &reg.ActionRegistry); err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}
	if err := reg.Compile(); err != nil {
		return nil, err
	}
	return &reg, nil
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the embedded registry. It panics if the embedded file is
// broken, which the package tests rule out.
func Default() *Registry {
	defaultOnce.Do(func() {
		reg, err := Parse(defaultRegistryJSON)
		if err != nil {
			panic(fmt.Sprintf("embedded action registry: %v", err))
		}
		defaultReg = reg
	})
	return defaultReg
}

// Compile checks the registry shape and compiles every param schema.
func (r *Registry) Compile() error {
	seen := make(map[string]bool, len(r.Actions))
	compiled := make(map[string]*jsonschema.Schema, len(r.Actions))

	for _, a := range r.Actions {
		if a.Name == "" {
			return fmt.Errorf("action with empty name")
		}
		if seen[a.Name] {
			return fmt.Errorf("duplicate action %q", a.Name)
		}
		seen[a.Name] = true
		if a.Signature != "()" && a.Signature != "(...)" {
			return fmt.Errorf("action %q: signature must be () or (...), got %q", a.Name, a.Signature)
		}
		if len(a.Params) == 0 {
			continue
		}

		raw, err := json.Marshal(a.Params)
		if err != nil {
			return fmt.Errorf("action %q: encode params schema: %w", a.Name, err)
		}
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		url := fmt.Sprintf("https://pos-interpreter.local/actions/%s.schema.json", a.Name)
		if err := c.AddResource(url, bytes.NewReader(raw)); err != nil {
			return fmt.Errorf("action %q: schema load failed: %w", a.Name, err)
		}
		schema, err := c.Compile(url)
		if err != nil {
			return fmt.Errorf("action %q: schema compile failed: %w", a.Name, err)
		}
		compiled[a.Name] = schema
	}

	r.mu.Lock()
	r.compiled = compiled
	r.mu.Unlock()
	return nil
}

// Names returns the registered action names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.Actions))
	for _, a := range r.Actions {
		names = append(names, a.Name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Lookup(name string) (ActionSpec, bool) {
	for _, a := range r.Actions {
		if a.Name == name {
			return a, true
		}
	}
	return ActionSpec{}, false
}

// CheckParams validates an action against its registered contract.
func (r *Registry) CheckParams(a models.Action) error {
	if _, ok := r.Lookup(a.Action); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAction, a.Action)
	}

	r.mu.RLock()
	schema := r.compiled[a.Action]
	r.mu.RUnlock()
	if schema == nil {
		return nil
	}

	// Round-trip so the validator only sees JSON-decoded value types.
	params := a.Params
	if params == nil {
		params = models.Params{}
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrContractViolation, a.Action, err)
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrContractViolation, a.Action, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrContractViolation, a.Action, err)
	}
	return nil
}
