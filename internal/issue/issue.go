// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	EntryNotFoundId Id = iota + 1
	ModuleNotFoundId
	ParseErrorId
	DynamicRequireId
	DependencyCycleId
	ConfigLoadFailedId
	OutputWriteFailedId
	MalformedBundleId
	BundleRuntimeErrorId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue page with glamour. stylePath is a glamour style
// name ("dark", "light", "notty") or a path to a JSON style file.
func (i *Issue) Render(stylePath string) (string, error) {
	var sb strings.Builder
	sb.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		sb.WriteString("\n\n## See also\n")
		for _, link := range append(i.DocLinks(), i.extLinks...) {
			sb.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(sb.String(), stylePath)
}

var (
	render = glamour.Render

	entryNotFoundIssue = &Issue{
		id: EntryNotFoundId,
		mdMsg: `
# Entry file not found!

The file given as the program entry point does not exist or is not a regular file.

## Things you can try:
- Check the path passed to the command
- Set a default entry in your project config:
~~~cue
entry: "src/main.lua"
~~~

- Print the effective configuration:
~~~
$ luabundle config show
~~~`,
	}

	moduleNotFoundIssue = &Issue{
		id: ModuleNotFoundId,
		mdMsg: `
# Module not found!

A ` + "`require`" + ` call names a module that none of the search roots provide.
The error lists every candidate file that was tried.

## Things you can try:
- Add the directory holding the module as a search root:
~~~
$ luabundle build main.lua -p src -p vendor
~~~

- Leave modules provided by the host (C modules, LuaRocks) to the runtime:
~~~cue
ignore: ["socket", "socket.*"]
~~~

- Tolerate modules that are only sometimes present:
~~~cue
optional: ["luacov"]
~~~

- Or downgrade every missing module to a warning with ` + "`--on-missing warn`",
	}

	parseErrorIssue = &Issue{
		id: ParseErrorId,
		mdMsg: `
# Lua syntax error!

A module could not be parsed. The message shows the file, line and column.

## Things you can try:
- Check the reported line for unbalanced ` + "`end`" + `, brackets or quotes
- Select the dialect the code is written for:
~~~
$ luabundle build main.lua --lua-version 5.4
~~~

  Integer division, bitwise operators and ` + "`goto`" + ` are not available in 5.1;
  ` + "`<const>`" + ` and ` + "`<close>`" + ` need 5.4.`,
	}

	dynamicRequireIssue = &Issue{
		id: DynamicRequireId,
		mdMsg: `
# Dynamic require found!

A ` + "`require`" + ` argument is not a string literal, so the module cannot be
bundled. At run time the call falls back to the host ` + "`require`" + `.

## Things you can try:
- Require the module with a literal name
- Require every candidate explicitly so they are bundled, then select one
- Keep the warning but do not fail the build:
~~~
$ luabundle build main.lua --on-dynamic warn
~~~`,
	}

	dependencyCycleIssue = &Issue{
		id: DependencyCycleId,
		mdMsg: `
# Dependency cycle!

Modules require each other. The bundle still builds: while a module is
loading, requiring it again returns ` + "`nil`" + `.

## Things you can try:
- Move the shared code into a third module
- Require the other module lazily, inside the function that needs it
- Inspect the graph:
~~~
$ luabundle graph main.lua
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The config file could not be read or does not match the schema.

## Things you can try:
- Find out which file is used:
~~~
$ luabundle config path
~~~

- Compare it with a freshly generated one:
~~~
$ luabundle config dump
~~~

- Check the field named in the error; unknown fields are rejected`,
	}

	outputWriteFailedIssue = &Issue{
		id: OutputWriteFailedId,
		mdMsg: `
# Failed to write the bundle!

The output file or its directory could not be written.

## Things you can try:
- Check that the output directory exists and is writable
- Write to standard output instead:
~~~
$ luabundle build main.lua --stdout > app.lua
~~~`,
	}

	malformedBundleIssue = &Issue{
		id: MalformedBundleId,
		mdMsg: `
# Not a luabundle bundle!

The file has no usable line-mapping comments (` + "`--@module`" + `), or a
module's line count does not match its body. Bundles edited by hand or
minified cannot be unbundled.

## Things you can try:
- Rebuild the bundle from the original sources
- Check that the file was produced by luabundle`,
	}

	bundleRuntimeErrorIssue = &Issue{
		id: BundleRuntimeErrorId,
		mdMsg: `
# The bundled program failed!

The program raised an error while running in the embedded Lua 5.1 VM.
Positions in the message are mapped back to the original files.

## Things you can try:
- Check the reported module line
- The embedded VM implements Lua 5.1; code for newer versions may fail here
  but run fine under the target interpreter`,
	}

	issues = map[Id]*Issue{
		entryNotFoundIssue.Id():      entryNotFoundIssue,
		moduleNotFoundIssue.Id():     moduleNotFoundIssue,
		parseErrorIssue.Id():         parseErrorIssue,
		dynamicRequireIssue.Id():     dynamicRequireIssue,
		dependencyCycleIssue.Id():    dependencyCycleIssue,
		configLoadFailedIssue.Id():   configLoadFailedIssue,
		outputWriteFailedIssue.Id():  outputWriteFailedIssue,
		malformedBundleIssue.Id():    malformedBundleIssue,
		bundleRuntimeErrorIssue.Id(): bundleRuntimeErrorIssue,
	}
)

// Values returns every issue ordered by Id.
func Values() []*Issue {
	values := maps.Values(issues)
	slices.SortFunc(values, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return values
}

func Get(id Id) *Issue {
	return issues[id]
}
