// Package catalog holds the static definitions of bookable services.
package catalog

import (
	"fmt"
	"sort"
	"time"
)

// Service describes one bookable service.
type Service struct {
	ID              string `json:"id" yaml:"id"`
	Name            string `json:"name" yaml:"name"`
	DurationMinutes int    `json:"duration_minutes" yaml:"duration_minutes"`
	Color           string `json:"color,omitempty" yaml:"color,omitempty"`
}

// Duration returns the service duration as a time.Duration.
func (s Service) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

// Catalog is a read-only lookup of services, loaded once at startup.
type Catalog struct {
	byID  map[string]Service
	order []string
}

// New builds a catalog from service definitions. IDs must be unique and
// durations positive.
func New(services []Service) (*Catalog, error) {
	if len(services) == 0 {
		return nil, fmt.Errorf("catalog: no services defined")
	}
	byID := make(map[string]Service, len(services))
	order := make([]string, 0, len(services))
	for _, svc := range services {
		if svc.ID == "" {
			return nil, fmt.Errorf("catalog: service %q has empty id", svc.Name)
		}
		if svc.DurationMinutes <= 0 {
			return nil, fmt.Errorf("catalog: service %q has non-positive duration", svc.ID)
		}
		if _, dup := byID[svc.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate service id %q", svc.ID)
		}
		byID[svc.ID] = svc
		order = append(order, svc.ID)
	}
	return &Catalog{byID: byID, order: order}, nil
}

// Get looks a service up by id.
func (c *Catalog) Get(id string) (Service, bool) {
	svc, ok := c.byID[id]
	return svc, ok
}

// List returns all services in definition order.
func (c *Catalog) List() []Service {
	out := make([]Service, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// IDs returns all service ids, sorted.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.byID))
	for id := range c.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
