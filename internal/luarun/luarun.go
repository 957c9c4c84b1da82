// SPDX-License-Identifier: MPL-2.0

// Package luarun executes Lua source in an embedded Lua 5.1 virtual machine.
//
// It backs the run command and the tests that check bundles behave like the
// programs they were built from. The VM is fresh for every call, standard
// libraries are open, and print writes to the configured writer.
package luarun

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// DefaultChunkName is the chunk name used in error messages when none is set.
const DefaultChunkName = "bundle.lua"

// ErrRuntime is the sentinel wrapped by every RuntimeError.
var ErrRuntime = errors.New("lua runtime error")

type (
	// Options configures Run.
	Options struct {
		// ChunkName appears in error positions ("name:line: message").
		ChunkName string
		// Args are passed to the chunk as "..." and stored in the global arg
		// table, with arg[0] set to ChunkName.
		Args []string
		// Stdout receives print output. Nil means os.Stdout.
		Stdout io.Writer
	}

	// RuntimeError is a Lua error raised while running a chunk.
	// It wraps ErrRuntime for errors.Is() compatibility.
	RuntimeError struct {
		Message   string
		Traceback string
	}
)

// Run compiles and executes src and returns every value the chunk returns.
// A leading shebang line is skipped. Cancelling ctx stops the VM.
func Run(ctx context.Context, src string, opts Options) ([]lua.LValue, error) {
	name := opts.ChunkName
	if name == "" {
		name = DefaultChunkName
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	L := lua.NewState()
	defer L.Close()
	L.SetContext(ctx)
	L.SetGlobal("print", L.NewFunction(printTo(stdout)))

	argTable := L.NewTable()
	argTable.RawSetInt(0, lua.LString(name))
	for i, a := range opts.Args {
		argTable.RawSetInt(i+1, lua.LString(a))
	}
	L.SetGlobal("arg", argTable)

	if strings.HasPrefix(src, "#") {
		// Keep line numbers: the shebang becomes a comment.
		src = "--" + src
	}
	fn, err := L.Load(strings.NewReader(src), name)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}

	L.Push(fn)
	for _, a := range opts.Args {
		L.Push(lua.LString(a))
	}
	if err := L.PCall(len(opts.Args), lua.MultRet, nil); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var apiErr *lua.ApiError
		if errors.As(err, &apiErr) {
			return nil, &RuntimeError{Message: apiErr.Object.String(), Traceback: apiErr.StackTrace}
		}
		return nil, &RuntimeError{Message: err.Error()}
	}

	top := L.GetTop()
	values := make([]lua.LValue, 0, top)
	for i := 1; i <= top; i++ {
		values = append(values, L.Get(i))
	}
	return values, nil
}

// printTo mirrors Lua's print: tab-separated tostring values and a newline.
func printTo(w io.Writer) lua.LGFunction {
	return func(L *lua.LState) int {
		n := L.GetTop()
		parts := make([]string, n)
		for i := 1; i <= n; i++ {
			parts[i-1] = L.ToStringMeta(L.Get(i)).String()
		}
		fmt.Fprintln(w, strings.Join(parts, "\t"))
		return 0
	}
}

// Error implements the error interface for RuntimeError.
func (e *RuntimeError) Error() string {
	return e.Message
}

// Unwrap returns ErrRuntime for errors.Is() compatibility.
func (e *RuntimeError) Unwrap() error { return ErrRuntime }
