// SPDX-License-Identifier: MPL-2.0

package datafile

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/appcraft/appcraft/internal/appdir"
	"github.com/appcraft/appcraft/internal/logging"
	"github.com/appcraft/appcraft/internal/testutil"
)

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	if _, err := New(Options{Include: []string{"share/*.json"}}); !errors.Is(err, ErrRelativePattern) {
		t.Errorf("relative include error = %v, want ErrRelativePattern", err)
	}
	if _, err := New(Options{Include: []string{"/share/[a"}}); err == nil {
		t.Error("malformed include accepted")
	}
	if _, err := New(Options{Exclude: []string{"/share/{a"}}); err == nil {
		t.Error("malformed exclude accepted")
	}
}

func TestBaseDependencies(t *testing.T) {
	t.Parallel()

	host := t.TempDir()
	keep := filepath.Join(host, "share", "app", "themes", "dark.json")
	also := filepath.Join(host, "share", "app", "icons", "app.png")
	skip := filepath.Join(host, "share", "app", "themes", "legacy.json")
	for _, p := range []string{keep, also, skip} {
		testutil.MustWriteFile(t, p, []byte("{}"), 0o644)
	}
	testutil.MustMkdirAll(t, filepath.Join(host, "share", "app", "empty.json"), 0o755)

	d, err := New(Options{
		Include: []string{
			filepath.Join(host, "share", "app", "**", "*.json"),
			filepath.Join(host, "share", "app", "**", "*"),
		},
		Exclude: []string{"**/legacy.json"},
		Logger:  logging.Discard(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	a, err := appdir.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	deps, err := d.BaseDependencies(context.Background(), a)
	if err != nil {
		t.Fatalf("BaseDependencies() error = %v", err)
	}

	got := make([]string, len(deps))
	for i, dep := range deps {
		got[i] = dep.Source()
	}
	if diff := cmp.Diff([]string{keep, also}, got); diff != "" {
		t.Errorf("BaseDependencies() mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		bundled string
		want    bool
	}{
		{name: "share file", bundled: "/usr/share/app/data.json", want: true},
		{name: "library only", bundled: "/usr/lib/libfoo.so", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a, err := appdir.Open(t.TempDir())
			if err != nil {
				t.Fatal(err)
			}
			a.MarkBundled(tt.bundled)
			if err := a.SetAppRun(appdir.NewAppRun("usr/bin/app", nil)); err != nil {
				t.Fatal(err)
			}

			d, _ := New(Options{})
			if err := d.Configure(context.Background(), a); err != nil {
				t.Fatalf("Configure() error = %v", err)
			}
			v, ok := a.AppRun().Lookup("XDG_DATA_DIRS")
			if ok != tt.want {
				t.Fatalf("XDG_DATA_DIRS set = %v, want %v", ok, tt.want)
			}
			if ok && v != "$APPDIR/usr/share${XDG_DATA_DIRS:+:$XDG_DATA_DIRS}" {
				t.Errorf("XDG_DATA_DIRS = %q", v)
			}
		})
	}
}
