// Package entitlement decides who may access which app.
//
// The decision model: free apps are open to everyone, paid apps require an
// active grant, and purchasing any app in a bundle unlocks every app in that
// bundle without per-sibling grant rows. Any uncertainty — unknown app id,
// grant-store failure, timeout — resolves to "no access". Paid content never
// fails open.
package entitlement

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v2"
)

// Domain-level sentinel errors. The HTTP middleware maps these onto the
// apierror envelope.
var (
	ErrUnknownApp     = errors.New("unknown app id")
	ErrFreeAppPayment = errors.New("free app cannot accept a payment")
)

// AppType classifies an app's pricing model.
type AppType string

const (
	AppFree AppType = "free"
	AppPaid AppType = "paid"
)

// AppConfig is one app's static catalog record. Type and BundleID fully
// determine the app's access policy; free apps never require a grant.
type AppConfig struct {
	ID       string  `yaml:"id"`
	Name     string  `yaml:"name"`
	Type     AppType `yaml:"type"`
	BundleID string  `yaml:"bundle,omitempty"`
	Price    int     `yaml:"price,omitempty"`
}

// Bundle groups paid apps under one purchasable unit. Membership is derived
// from the apps' bundle references; a bundle is never empty.
type Bundle struct {
	ID   string   `yaml:"id"`
	Name string   `yaml:"name"`
	Apps []string `yaml:"-"`
}

// Registry is the static app/bundle catalog, loaded once at process start.
// Lookups never guess: an unknown app id is an error, not free and not paid.
type Registry struct {
	apps    map[string]AppConfig
	bundles map[string]Bundle
}

type catalogFile struct {
	Apps    []AppConfig `yaml:"apps"`
	Bundles []Bundle    `yaml:"bundles"`
}

// NewRegistry builds a registry from catalog records.
//
// Validation: app ids are non-empty and unique, types are free or paid, free
// apps carry no bundle, and every declared bundle has at least one member.
// Bundles referenced by apps but not declared are synthesized.
func NewRegistry(apps []AppConfig, bundles []Bundle) (*Registry, error) {
	r := &Registry{
		apps:    make(map[string]AppConfig, len(apps)),
		bundles: make(map[string]Bundle),
	}

	for _, b := range bundles {
		if b.ID == "" {
			return nil, fmt.Errorf("bundle with empty id")
		}
		if _, dup := r.bundles[b.ID]; dup {
			return nil, fmt.Errorf("duplicate bundle id %q", b.ID)
		}
		b.Apps = nil
		r.bundles[b.ID] = b
	}

	for _, app := range apps {
		if app.ID == "" {
			return nil, fmt.Errorf("app with empty id")
		}
		if _, dup := r.apps[app.ID]; dup {
			return nil, fmt.Errorf("duplicate app id %q", app.ID)
		}
		if app.Type != AppFree && app.Type != AppPaid {
			return nil, fmt.Errorf("app %q has invalid type %q", app.ID, app.Type)
		}
		if app.Type == AppFree && app.BundleID != "" {
			return nil, fmt.Errorf("free app %q cannot belong to bundle %q", app.ID, app.BundleID)
		}
		r.apps[app.ID] = app

		if app.BundleID != "" {
			b, ok := r.bundles[app.BundleID]
			if !ok {
				b = Bundle{ID: app.BundleID, Name: app.BundleID}
			}
			b.Apps = append(b.Apps, app.ID)
			r.bundles[app.BundleID] = b
		}
	}

	for id, b := range r.bundles {
		if len(b.Apps) == 0 {
			return nil, fmt.Errorf("bundle %q has no member apps", id)
		}
		sort.Strings(b.Apps)
		r.bundles[id] = b
	}

	return r, nil
}

// LoadRegistry reads a YAML catalog file and builds the registry.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	return NewRegistry(file.Apps, file.Bundles)
}

// App returns the catalog record for an app id.
func (r *Registry) App(id string) (AppConfig, error) {
	app, ok := r.apps[id]
	if !ok {
		return AppConfig{}, fmt.Errorf("%w: %q", ErrUnknownApp, id)
	}
	return app, nil
}

// IsFree reports whether the app is free. Unknown ids are an error, never
// silently free or paid.
func (r *Registry) IsFree(id string) (bool, error) {
	app, err := r.App(id)
	if err != nil {
		return false, err
	}
	return app.Type == AppFree, nil
}

// Bundle returns the bundle record for a bundle id.
func (r *Registry) Bundle(id string) (Bundle, bool) {
	b, ok := r.bundles[id]
	return b, ok
}

// BundleApps returns the ids of every app in the bundle.
func (r *Registry) BundleApps(bundleID string) []string {
	b, ok := r.bundles[bundleID]
	if !ok {
		return nil
	}
	apps := make([]string, len(b.Apps))
	copy(apps, b.Apps)
	return apps
}
