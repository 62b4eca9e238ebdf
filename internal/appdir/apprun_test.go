// SPDX-License-Identifier: MPL-2.0

package appdir

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAppRun_Script(t *testing.T) {
	t.Parallel()

	r := NewAppRun("/usr/bin/app", []string{"--data", "it's here", PassArgs})
	r.Interpreter = "lib64/ld-linux-x86-64.so.2"
	r.PrependPath("LD_LIBRARY_PATH", "$APPDIR/usr/lib", "$APPDIR/lib")
	r.SetEnv("APP_MODE", "bundle")

	got, err := r.Script()
	if err != nil {
		t.Fatalf("Script() error = %v", err)
	}

	for _, want := range []string{
		"#!/bin/sh\n",
		"export APPDIR\n",
		`export LD_LIBRARY_PATH="$APPDIR/usr/lib:$APPDIR/lib${LD_LIBRARY_PATH:+:$LD_LIBRARY_PATH}"` + "\n",
		`export APP_MODE="bundle"` + "\n",
		`exec "$APPDIR/lib64/ld-linux-x86-64.so.2" "$APPDIR/usr/bin/app" --data "it's here" "$@"` + "\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Script() missing %q in:\n%s", want, got)
		}
	}
}

func TestAppRun_ScriptEscapesExec(t *testing.T) {
	t.Parallel()

	r := NewAppRun("usr/bin/$weird`name", []string{})
	got, err := r.Script()
	if err != nil {
		t.Fatalf("Script() error = %v", err)
	}
	if !strings.Contains(got, `exec "$APPDIR/usr/bin/\$weird\`+"`"+`name"`) {
		t.Errorf("exec path not escaped:\n%s", got)
	}
}

func TestAppRun_ScriptErrors(t *testing.T) {
	t.Parallel()

	if _, err := (&AppRun{}).Script(); !errors.Is(err, ErrNoExec) {
		t.Errorf("empty Exec error = %v, want ErrNoExec", err)
	}

	r := NewAppRun("usr/bin/app", nil)
	r.SetEnv("BAD-NAME", "x")
	if _, err := r.Script(); !errors.Is(err, ErrInvalidLauncher) {
		t.Errorf("bad env name error = %v, want ErrInvalidLauncher", err)
	}
}

func TestAppRun_EnvHelpers(t *testing.T) {
	t.Parallel()

	r := NewAppRun("usr/bin/app", nil)
	if len(r.Args) != 1 || r.Args[0] != PassArgs {
		t.Errorf("default Args = %v, want [$@]", r.Args)
	}

	r.SetEnv("A", "1")
	r.SetEnv("B", "2")
	r.SetEnv("A", "3")
	if len(r.Env) != 2 || r.Env[0] != (EnvVar{Name: "A", Value: "3"}) {
		t.Errorf("Env = %+v, want A replaced in place", r.Env)
	}

	r.PrependPath("XDG_DATA_DIRS", "$APPDIR/usr/share")
	r.PrependPath("XDG_DATA_DIRS", "$APPDIR/share")
	got, _ := r.Lookup("XDG_DATA_DIRS")
	want := "$APPDIR/share:$APPDIR/usr/share${XDG_DATA_DIRS:+:$XDG_DATA_DIRS}"
	if got != want {
		t.Errorf("XDG_DATA_DIRS = %q, want %q", got, want)
	}

	r.PrependPath("PATH")
	if _, ok := r.Lookup("PATH"); ok {
		t.Error("PrependPath without dirs assigned a value")
	}
}

func TestAppRun_Save(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), AppRunName)
	if err := os.WriteFile(path, []byte("old"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := NewAppRun("usr/bin/app", nil).Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	st, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if st.Mode().Perm() != 0o755 {
		t.Errorf("mode = %o, want 755", st.Mode().Perm())
	}
	data, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(data), "#!/bin/sh\n") {
		t.Errorf("unexpected content:\n%s", data)
	}
}
