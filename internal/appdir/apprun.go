// SPDX-License-Identifier: MPL-2.0

package appdir

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// PassArgs forwards the launcher's own arguments.
const PassArgs = "$@"

var (
	// ErrNoExec is returned when the launcher has no executable.
	ErrNoExec = errors.New("AppRun has no executable")
	// ErrInvalidLauncher is returned when the rendered launcher does not parse.
	ErrInvalidLauncher = errors.New("invalid AppRun script")
)

type (
	// EnvVar is one exported launcher variable. Value is expanded by the
	// shell inside double quotes, so it may reference $APPDIR or other
	// variables.
	EnvVar struct {
		Name  string
		Value string
	}

	// AppRun describes how the bundled application is started.
	AppRun struct {
		// Exec is the primary executable relative to the AppDir root.
		Exec string
		// Args follow Exec. PassArgs expands to the launcher's arguments;
		// anything else is passed literally.
		Args []string
		// Interpreter is an optional bundled dynamic loader, relative to the
		// AppDir root, used to start Exec.
		Interpreter string
		// Env is exported before exec, in order.
		Env []EnvVar
	}
)

// NewAppRun returns a launcher for exec. Nil args forward the launcher's own
// arguments.
func NewAppRun(exec string, args []string) *AppRun {
	if args == nil {
		args = []string{PassArgs}
	}
	return &AppRun{Exec: strings.TrimPrefix(exec, "/"), Args: args}
}

// SetEnv sets name to value, replacing an earlier assignment in place.
func (r *AppRun) SetEnv(name, value string) {
	for i := range r.Env {
		if r.Env[i].Name == name {
			r.Env[i].Value = value
			return
		}
	}
	r.Env = append(r.Env, EnvVar{Name: name, Value: value})
}

// Lookup returns the value assigned to name.
func (r *AppRun) Lookup(name string) (string, bool) {
	for _, v := range r.Env {
		if v.Name == name {
			return v.Value, true
		}
	}
	return "", false
}

// PrependPath puts dirs in front of the colon-separated list in name. Without
// an earlier assignment the inherited value is kept at the end.
func (r *AppRun) PrependPath(name string, dirs ...string) {
	if len(dirs) == 0 {
		return
	}
	head := strings.Join(dirs, ":")
	if old, ok := r.Lookup(name); ok {
		r.SetEnv(name, head+":"+old)
		return
	}
	r.SetEnv(name, head+"${"+name+":+:$"+name+"}")
}

// Script renders the launcher as a POSIX shell script.
func (r *AppRun) Script() (string, error) {
	if r.Exec == "" {
		return "", ErrNoExec
	}

	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	b.WriteString("APPDIR=\"${APPDIR:-$(dirname \"$(readlink -f \"$0\")\")}\"\n")
	b.WriteString("export APPDIR\n")
	for _, v := range r.Env {
		if !syntax.ValidName(v.Name) {
			return "", fmt.Errorf("%w: bad variable name %q", ErrInvalidLauncher, v.Name)
		}
		fmt.Fprintf(&b, "export %s=\"%s\"\n", v.Name, escapeDouble(v.Value, true))
	}

	b.WriteString("exec")
	if r.Interpreter != "" {
		fmt.Fprintf(&b, " \"$APPDIR/%s\"", escapeDouble(strings.TrimPrefix(r.Interpreter, "/"), false))
	}
	fmt.Fprintf(&b, " \"$APPDIR/%s\"", escapeDouble(r.Exec, false))
	for _, arg := range r.Args {
		if arg == PassArgs {
			b.WriteString(` "$@"`)
			continue
		}
		q, err := syntax.Quote(arg, syntax.LangPOSIX)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidLauncher, err)
		}
		b.WriteString(" " + q)
	}
	b.WriteString("\n")

	script := b.String()
	if _, err := syntax.NewParser(syntax.Variant(syntax.LangPOSIX)).Parse(strings.NewReader(script), AppRunName); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidLauncher, err)
	}
	return script, nil
}

// Save writes the launcher to path with mode 0755.
func (r *AppRun) Save(path string) error {
	script, err := r.Script()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	// WriteFile leaves the mode of an existing file alone.
	if err := os.Chmod(path, 0o755); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// escapeDouble escapes s for a double-quoted shell word. Dollar signs are
// kept live when expand is set.
func escapeDouble(s string, expand bool) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '"', '\\', '`':
			b.WriteByte('\\')
		case '$':
			if !expand {
				b.WriteByte('\\')
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}
