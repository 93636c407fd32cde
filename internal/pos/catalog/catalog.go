// internal/pos/catalog/catalog.go

// Package catalog turns whatever the front end sends as its action catalog
// into the whitelist of action names the pipeline may emit.
package catalog

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"pos-interpreter/internal/models"
)

// AllowedActionSet is an immutable, sorted set of action names.
type AllowedActionSet struct {
	names []string
	set   map[string]struct{}
}

var reCatalogLine = regexp.MustCompile(`(?i)-\s*([a-z_][a-z0-9_]*)\s*\(`)

// NewAllowedActionSet builds a set from names; blanks are ignored.
func NewAllowedActionSet(names ...string) AllowedActionSet {
	s := AllowedActionSet{set: make(map[string]struct{}, len(names))}
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, dup := s.set[n]; dup {
			continue
		}
		s.set[n] = struct{}{}
		s.names = append(s.names, n)
	}
	sort.Strings(s.names)
	return s
}

// Default returns the built-in action set.
func Default() AllowedActionSet {
	return NewAllowedActionSet(models.DefaultActions...)
}

// Has reports whether name is allowed.
func (s AllowedActionSet) Has(name string) bool {
	_, ok := s.set[name]
	return ok
}

// Contains reports whether every name is allowed.
func (s AllowedActionSet) Contains(names ...string) bool {
	for _, n := range names {
		if !s.Has(n) {
			return false
		}
	}
	return true
}

// Names returns the sorted names. The slice is a copy.
func (s AllowedActionSet) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

func (s AllowedActionSet) Len() int { return len(s.names) }

func (s AllowedActionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Names())
}

// Parse normalises a raw JSON catalog. Empty or unusable input yields the
// default set.
func Parse(raw json.RawMessage) AllowedActionSet {
	if len(raw) == 0 {
		return Default()
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return Default()
	}
	return FromValue(v)
}

// FromValue accepts a list of names, a list of {action} objects, an object
// with an "actions" list, or free text with "- name(" lines.
func FromValue(v interface{}) AllowedActionSet {
	var names []string
	switch c := v.(type) {
	case map[string]interface{}:
		if list, ok := c["actions"].([]interface{}); ok {
			names = fromList(list)
		}
	case []interface{}:
		names = fromList(c)
	case []string:
		names = c
	case string:
		for _, line := range strings.Split(c, "\n") {
			if m := reCatalogLine.FindStringSubmatch(line); m != nil {
				names = append(names, m[1])
			}
		}
	}
	s := NewAllowedActionSet(names...)
	if s.Len() == 0 {
		return Default()
	}
	return s
}

func fromList(list []interface{}) []string {
	names := make([]string, 0, len(list))
	for _, x := range list {
		switch e := x.(type) {
		case string:
			names = append(names, e)
		case map[string]interface{}:
			if a, ok := e["action"]; ok && a != nil {
				names = append(names, fmt.Sprint(a))
			}
		}
	}
	return names
}
