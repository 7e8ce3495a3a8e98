// Package contract maintains the machine-readable catalog of API endpoints.
// Endpoints are registered explicitly while the router is composed, so the
// catalog always matches what is actually routed.
package contract

import (
	"encoding/json"
	"net/http"
	"sort"
)

// Endpoint describes one registered route.
type Endpoint struct {
	Method  string `json:"method"`
	Path    string `json:"path"`
	Summary string `json:"summary"`
	Auth    bool   `json:"auth"`
}

// Registry collects endpoint registrations made during router composition.
// It is not safe for concurrent registration; register everything before
// serving.
type Registry struct {
	endpoints []Endpoint
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register records one endpoint.
func (r *Registry) Register(method, path, summary string, auth bool) {
	r.endpoints = append(r.endpoints, Endpoint{Method: method, Path: path, Summary: summary, Auth: auth})
}

// Endpoints returns the catalog sorted by path, then method.
func (r *Registry) Endpoints() []Endpoint {
	out := append([]Endpoint(nil), r.endpoints...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Method < out[j].Method
	})
	return out
}

// Handler serves the catalog as JSON.
func (r *Registry) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"endpoints": r.Endpoints()})
	}
}
