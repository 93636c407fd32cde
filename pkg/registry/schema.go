// pkg/registry/schema.go
package registry

// ActionRegistry is the on-disk catalog of every action the front end
// understands.
type ActionRegistry struct {
	Version     string       `json:"version"`
	LastUpdated string       `json:"lastUpdated"`
	Actions     []ActionSpec `json:"actions"`
}

// ActionSpec describes one action. Params is a JSON schema for its params
// object.
type ActionSpec struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Signature   string                 `json:"signature"` // "()" or "(...)"
	Critical    bool                   `json:"critical"`
	Params      map[string]interface{} `json:"params"`
	Tags        []string               `json:"tags"`
}
