// Package registry is the saved-service store: a plain JSON file of
// named REST services and named regions, loaded at command start and
// rewritten whole on change.
package registry

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// Service is one saved REST service.
type Service struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	Type      string `json:"type"` // MapServer or FeatureServer
	Region    string `json:"region,omitempty"`
	LayerType string `json:"layer_type,omitempty"` // density hint for the safety gate
}

// Region is a named administrative area with its WGS84 bounding box
// and the keys of its associated services.
type Region struct {
	Name     string     `json:"name"`
	BBox     [4]float64 `json:"bbox"` // xmin, ymin, xmax, ymax
	Services []string   `json:"services,omitempty"`
}

// Registry is the full saved-service store.
type Registry struct {
	Services map[string]Service `json:"services"`
	Regions  map[string]Region  `json:"regions"`

	path string
}

// Load reads the registry file. A missing file yields an empty
// registry bound to the same path.
func Load(path string) (*Registry, error) {
	reg := &Registry{
		Services: map[string]Service{},
		Regions:  map[string]Region{},
		path:     path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return reg, nil
		}
		return nil, eris.Wrapf(err, "registry: read %s", path)
	}

	if err := json.Unmarshal(data, reg); err != nil {
		return nil, eris.Wrapf(err, "registry: parse %s", path)
	}
	if reg.Services == nil {
		reg.Services = map[string]Service{}
	}
	if reg.Regions == nil {
		reg.Regions = map[string]Region{}
	}
	reg.path = path
	return reg, nil
}

// Save writes the registry back to its file.
func (r *Registry) Save() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return eris.Wrap(err, "registry: create directory")
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return eris.Wrap(err, "registry: marshal")
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return eris.Wrapf(err, "registry: write %s", r.path)
	}
	return nil
}

// AddService saves or replaces a service under key.
func (r *Registry) AddService(key string, svc Service) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return eris.New("registry: empty service key")
	}
	if svc.URL == "" {
		return eris.New("registry: service URL is required")
	}
	r.Services[key] = svc
	return nil
}

// RemoveService deletes a service by key.
func (r *Registry) RemoveService(key string) error {
	if _, ok := r.Services[key]; !ok {
		return eris.Errorf("registry: no service %q", key)
	}
	delete(r.Services, key)
	return nil
}

// ServiceKeys returns the saved service keys sorted alphabetically.
func (r *Registry) ServiceKeys() []string {
	keys := make([]string, 0, len(r.Services))
	for k := range r.Services {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RegionServices returns the services associated with a region key.
func (r *Registry) RegionServices(regionKey string) []Service {
	region, ok := r.Regions[regionKey]
	if !ok {
		return nil
	}
	var svcs []Service
	for _, key := range region.Services {
		if svc, ok := r.Services[key]; ok {
			svcs = append(svcs, svc)
		}
	}
	return svcs
}
