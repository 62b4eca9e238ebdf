// SPDX-License-Identifier: MPL-2.0

// Package driver defines the dependency driver capabilities and the ordered
// registry the build engine iterates over.
//
// A driver knows how to find one kind of dependency. Each capability is
// optional: a driver that does not implement one contributes nothing to that
// stage.
package driver

import (
	"context"
	"errors"
	"fmt"

	"github.com/appcraft/appcraft/internal/appdir"
)

var (
	// ErrDuplicateDriver is returned when two drivers share an ID.
	ErrDuplicateDriver = errors.New("driver already registered")
	// ErrUnknownDriver is returned when an ID is not registered.
	ErrUnknownDriver = errors.New("unknown driver")
)

type (
	// Driver is the common identity of all drivers.
	Driver interface {
		// ID names the driver in logs, errors and the recipe.
		ID() string
	}

	// BaseLister is implemented by drivers that seed the worklist.
	BaseLister interface {
		Driver
		// BaseDependencies returns the dependencies always needed by this
		// driver's domain.
		BaseDependencies(ctx context.Context, a *appdir.AppDir) ([]appdir.Dependency, error)
	}

	// FileLookup is implemented by drivers that discover dependencies of an
	// already discovered file.
	FileLookup interface {
		Driver
		// LookupDependencies returns further dependencies pulled in by path.
		LookupDependencies(ctx context.Context, path string, a *appdir.AppDir) ([]appdir.Dependency, error)
	}

	// Configurer is implemented by drivers that adjust the finished bundle.
	// Configure is called exactly once per build, after the closure.
	Configurer interface {
		Driver
		Configure(ctx context.Context, a *appdir.AppDir) error
	}

	// Registry holds the drivers of one build in registration order.
	Registry struct {
		drivers []Driver
		byID    map[string]Driver
	}
)

// NewRegistry creates a registry holding drivers, in order.
func NewRegistry(drivers ...Driver) (*Registry, error) {
	r := &Registry{byID: make(map[string]Driver)}
	for _, d := range drivers {
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register appends d. IDs must be unique.
func (r *Registry) Register(d Driver) error {
	if r.byID == nil {
		r.byID = make(map[string]Driver)
	}
	id := d.ID()
	if _, exists := r.byID[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateDriver, id)
	}
	r.byID[id] = d
	r.drivers = append(r.drivers, d)
	return nil
}

// Get returns the driver registered under id.
func (r *Registry) Get(id string) (Driver, error) {
	d, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, id)
	}
	return d, nil
}

// Drivers returns the drivers in registration order.
func (r *Registry) Drivers() []Driver {
	return append([]Driver(nil), r.drivers...)
}

// IDs returns the driver IDs in registration order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.drivers))
	for i, d := range r.drivers {
		ids[i] = d.ID()
	}
	return ids
}
