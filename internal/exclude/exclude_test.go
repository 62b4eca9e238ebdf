// SPDX-License-Identifier: MPL-2.0

package exclude

import (
	"errors"
	"testing"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/appcraft/appcraft/internal/testutil"
)

func TestDefault_Excluded(t *testing.T) {
	t.Parallel()

	policy := Default("/home/alice")

	tests := []struct {
		path string
		want bool
	}{
		{"/proc/1234/maps", true},
		{"/sys/devices/system/cpu/online", true},
		{"/dev/dri/card0", true},
		{"/run/user/1000/bus", true},
		{"/etc/ld.so.cache", true},
		{"/home/alice/.config/app.conf", true},
		{"/home/alice/.config/app/settings.ini", true},
		{"/home/alice/.cache/mesa_shader_cache/index", true},
		{"/home/alice/.fonts/Inter.ttf", true},
		{"/var/lib/dbus/machine-id", true},
		{"/usr/share/fonts/truetype/fonts.conf", true},
		{"/usr/share/fonts/opentype/Inter.otf", true},
		{"/var/cache/fontconfig/abc-le64.cache-7", true},
		{"/usr/lib/x86_64-linux-gnu/gdk-pixbuf-2.0/2.10.0/loaders.cache", true},
		{"/usr/lib/x86_64-linux-gnu/gio/modules/giomodule.cache", true},
		{"/usr/share/glib-2.0/schemas/gschemas.compiled", true},
		{"/usr/lib/libfoo.so.1", false},
		{"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf", false},
		{"/home/alice/project/data.bin", false},
		{"/home/bob/.config/app.conf", false},
		{"/usr/share/locale/de/LC_MESSAGES/app.mo", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			if got := policy.Excluded(tt.path); got != tt.want {
				t.Errorf("Excluded(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestDefault_EmptyHome(t *testing.T) {
	t.Parallel()

	policy := Default("")
	if got, want := len(policy.Patterns()), len(systemPatterns); got != want {
		t.Fatalf("len(Patterns()) = %d, want %d", got, want)
	}
	if policy.Excluded("/.config/app.conf") {
		t.Error("home patterns must be absent without a home directory")
	}
}

func TestDefaultForUser(t *testing.T) {
	// Not parallel: changes HOME.
	home := t.TempDir()
	t.Cleanup(testutil.SetHomeDir(t, home))

	policy := DefaultForUser()
	if !policy.Excluded(home + "/.config/app/settings.ini") {
		t.Errorf("%s/.config not excluded", home)
	}
	if policy.Excluded(home + "/Documents/report.txt") {
		t.Error("ordinary home files must not be excluded")
	}
}

func TestDefault_HomeWithMetaCharacters(t *testing.T) {
	t.Parallel()

	policy := Default("/home/a[1]")
	if !policy.Excluded("/home/a[1]/.config/app.conf") {
		t.Error("literal home directory should match")
	}
	if policy.Excluded("/home/a1/.config/app.conf") {
		t.Error("home directory must not be treated as a glob")
	}
}

func TestPolicy_With(t *testing.T) {
	t.Parallel()

	base := New("/opt/**")
	extended := base.With("**/*.pyc")

	if base.Excluded("/usr/lib/python3/x.pyc") {
		t.Error("With must not mutate the receiver")
	}
	if !extended.Excluded("/usr/lib/python3/x.pyc") || !extended.Excluded("/opt/app/bin") {
		t.Error("extended policy should match both patterns")
	}
}

func TestPolicy_Validate(t *testing.T) {
	t.Parallel()

	if err := Default("/root").Validate(); err != nil {
		t.Fatalf("default policy invalid: %v", err)
	}

	err := New("/usr/**", "/opt/[").Validate()
	var patErr *InvalidPatternError
	if !errors.As(err, &patErr) || patErr.Pattern != "/opt/[" {
		t.Fatalf("Validate() = %v, want InvalidPatternError for /opt/[", err)
	}
	if !errors.Is(err, doublestar.ErrBadPattern) {
		t.Error("InvalidPatternError should unwrap to doublestar.ErrBadPattern")
	}
}
