// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

func TestGet_EveryIdHasGuide(t *testing.T) {
	t.Parallel()

	for id := ToolNotFoundId; id <= TraceFailedId; id++ {
		issue := Get(id)
		if issue == nil {
			t.Fatalf("Get(%d) = nil", id)
		}
		if issue.Id() != id {
			t.Errorf("Get(%d).Id() = %d", id, issue.Id())
		}
		if strings.TrimSpace(string(issue.MarkdownMsg())) == "" {
			t.Errorf("issue %d has no message", id)
		}
	}
}

func TestGet(t *testing.T) {
	t.Parallel()

	if Get(ToolNotFoundId) != toolNotFoundIssue {
		t.Error("Get(ToolNotFoundId) returned the wrong issue")
	}
	if Get(Id(0)) != nil || Get(Id(999)) != nil {
		t.Error("Get returned an issue for an unknown id")
	}
}

func TestIssue_ExtLinksIsCopy(t *testing.T) {
	t.Parallel()

	links := Get(ToolNotFoundId).ExtLinks()
	links[0] = "changed"
	if Get(ToolNotFoundId).ExtLinks()[0] == "changed" {
		t.Error("ExtLinks exposed internal state")
	}
}

func TestIssue_Render(t *testing.T) {
	// Not parallel: replaces the package-level render function.
	originalRender := render
	t.Cleanup(func() { render = originalRender })

	var gotStyle string
	render = func(in, stylePath string) (string, error) {
		gotStyle = stylePath
		return in, nil
	}

	t.Run("with links", func(t *testing.T) {
		rendered, err := Get(AppDirNotFoundId).Render("dark")
		if err != nil {
			t.Fatalf("Render() error = %v", err)
		}
		if gotStyle != "dark" {
			t.Errorf("style = %q, want dark", gotStyle)
		}
		if !strings.Contains(rendered, "## See also\n- <https://docs.appimage.org/reference/appdir.html>") {
			t.Errorf("links not rendered:\n%s", rendered)
		}
	})

	t.Run("without links", func(t *testing.T) {
		rendered, err := Get(DeployFailedId).Render("")
		if err != nil {
			t.Fatalf("Render() error = %v", err)
		}
		if strings.Contains(rendered, "See also") {
			t.Errorf("unexpected links section:\n%s", rendered)
		}
	})
}

func TestIssue_RenderGlamour(t *testing.T) {
	t.Parallel()

	rendered, err := Get(RecipeNotFoundId).Render("notty")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(rendered, "No recipe found") || strings.Contains(rendered, "~~~") {
		t.Errorf("unexpected rendering:\n%s", rendered)
	}
}
