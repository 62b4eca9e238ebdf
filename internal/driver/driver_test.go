// SPDX-License-Identifier: MPL-2.0

package driver

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type namedDriver string

func (d namedDriver) ID() string { return string(d) }

func TestRegistry_Order(t *testing.T) {
	t.Parallel()

	r, err := NewRegistry(namedDriver("runtime"), namedDriver("libraries"), namedDriver("data"))
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	if diff := cmp.Diff([]string{"runtime", "libraries", "data"}, r.IDs()); diff != "" {
		t.Errorf("IDs() mismatch (-want +got):\n%s", diff)
	}
	if got := len(r.Drivers()); got != 3 {
		t.Errorf("Drivers() has %d entries, want 3", got)
	}

	d, err := r.Get("libraries")
	if err != nil || d.ID() != "libraries" {
		t.Errorf("Get(libraries) = %v, %v", d, err)
	}
}

func TestRegistry_Errors(t *testing.T) {
	t.Parallel()

	if _, err := NewRegistry(namedDriver("a"), namedDriver("a")); !errors.Is(err, ErrDuplicateDriver) {
		t.Errorf("duplicate error = %v, want ErrDuplicateDriver", err)
	}

	var r Registry
	if err := r.Register(namedDriver("a")); err != nil {
		t.Fatalf("Register() on zero Registry error = %v", err)
	}
	if _, err := r.Get("b"); !errors.Is(err, ErrUnknownDriver) {
		t.Errorf("Get(b) error = %v, want ErrUnknownDriver", err)
	}
}

func TestRegistry_DriversIsACopy(t *testing.T) {
	t.Parallel()

	r, _ := NewRegistry(namedDriver("a"))
	drivers := r.Drivers()
	drivers[0] = namedDriver("z")
	if r.IDs()[0] != "a" {
		t.Error("mutating Drivers() result changed the registry")
	}
}
