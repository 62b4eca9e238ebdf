// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

// Id identifies a troubleshooting guide.
type Id int

const (
	ToolNotFoundId Id = iota + 1
	RecipeNotFoundId
	RecipeInvalidId
	AppDirNotFoundId
	DeployFailedId
	UnsupportedArchitectureId
	TraceFailedId
)

type (
	// MarkdownMsg is the guide body.
	MarkdownMsg string

	// HttpLink points at external documentation.
	HttpLink string

	// Issue is a markdown troubleshooting guide shown under an error.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		extLinks []HttpLink
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the guide for a terminal. stylePath is a glamour style name
// ("auto", "dark", "notty", ...) or a JSON style file.
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range i.extLinks {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	toolNotFoundIssue = &Issue{
		id: ToolNotFoundId,
		mdMsg: `
# A required tool is missing

appcraft drives external programs for the parts of a build it cannot do
in-process:

- **strace** traces the application when the runtime driver is enabled
- **patchelf** reads interpreters and rewrites RUNPATH entries
- **readelf** (binutils) checks that the primary executable is runnable

## Things you can try:
- Install them with your package manager:
~~~
$ sudo apt install strace patchelf binutils
~~~
- Build without tracing by disabling the runtime driver:
~~~cue
runtime: enabled: false
~~~`,
		extLinks: []HttpLink{
			"https://man7.org/linux/man-pages/man1/strace.1.html",
			"https://github.com/NixOS/patchelf",
		},
	}

	recipeNotFoundIssue = &Issue{
		id: RecipeNotFoundId,
		mdMsg: `
# No recipe found

appcraft reads its build recipe from the file given with --recipe, or from
appcraft.cue in the working directory.

## Things you can try:
- Create a starter recipe:
~~~
$ appcraft config init
~~~
- Point to an existing one:
~~~
$ appcraft --recipe path/to/appcraft.cue build
~~~`,
	}

	recipeInvalidIssue = &Issue{
		id: RecipeInvalidId,
		mdMsg: `
# The recipe is not valid

Every recipe needs the AppDir location and the primary executable:

~~~cue
appdir: path: "AppDir"
app: exec: "usr/bin/myapp"
~~~

## Things you can try:
- Check the field named in the error above
- Show the values appcraft resolved, defaults included:
~~~
$ appcraft config show
~~~
- Remember that APPCRAFT_* environment variables override the file`,
	}

	appDirNotFoundIssue = &Issue{
		id: AppDirNotFoundId,
		mdMsg: `
# The AppDir does not exist

appcraft bundles dependencies into an existing AppDir. Install the
application into it first, then build.

## Things you can try:
- Install with a staging prefix:
~~~
$ make DESTDIR=$PWD/AppDir install
~~~
- Pass another location with --appdir`,
		extLinks: []HttpLink{
			"https://docs.appimage.org/reference/appdir.html",
		},
	}

	deployFailedIssue = &Issue{
		id: DeployFailedId,
		mdMsg: `
# A dependency could not be copied

The file was found on the host but could not be written into the AppDir.

## Things you can try:
- Check that the AppDir is writable by your user
- Check that the source file is readable
- Exclude the file from the recipe if the application does not need it`,
	}

	unsupportedArchitectureIssue = &Issue{
		id: UnsupportedArchitectureId,
		mdMsg: `
# Unsupported architecture

appcraft could not map the ELF machine type of a bundled file to a library
directory layout. Supported: x86_64, i386, aarch64, armhf.

## Things you can try:
- Inspect the file:
~~~
$ appcraft inspect <file>
~~~
- Add the library directories explicitly with libraries.search_paths`,
	}

	traceFailedIssue = &Issue{
		id: TraceFailedId,
		mdMsg: `
# The application could not be traced

strace failed to start the application.

## Things you can try:
- Check that app.exec points at a runnable file inside the AppDir
- Allow ptrace in containers (e.g. --cap-add SYS_PTRACE)
- Re-run with --verbose to see the strace command line`,
	}

	issues = map[Id]*Issue{
		toolNotFoundIssue.Id():            toolNotFoundIssue,
		recipeNotFoundIssue.Id():          recipeNotFoundIssue,
		recipeInvalidIssue.Id():           recipeInvalidIssue,
		appDirNotFoundIssue.Id():          appDirNotFoundIssue,
		deployFailedIssue.Id():            deployFailedIssue,
		unsupportedArchitectureIssue.Id(): unsupportedArchitectureIssue,
		traceFailedIssue.Id():             traceFailedIssue,
	}
)

// Get returns the guide for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
