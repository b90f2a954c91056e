package script

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/BaSui01/stepflow/workflow"
)

// DefaultEntry is the entry function looked up when none is configured.
const DefaultEntry = "Run"

// Script is a "[Script]" workflow leaf interpreting Go source with yaegi.
// Every execution builds a fresh interpreter exposing only the standard
// library, evaluates the source, and calls the entry function with a
// snapshot of the workflow context. The source may carry any package
// clause or none at all; the entry is resolved bare first, then qualified
// by the declared package. Supported entry signatures:
//
//	func(map[string]any) (map[string]any, error)
//	func(map[string]any) error
//
// On success the returned map (first form) or the mutated snapshot (second
// form) is written back to the context key by key. Load failures, syntax
// errors, unresolved imports, a missing or ill-typed entry, a returned
// error and interpreter panics all surface as FAILED results.
type Script struct {
	workflow.Base
	entry string
	load  func() (string, error)
}

// New builds a script leaf from inline source. A blank entry defaults to
// DefaultEntry.
func New(name, source, entry string) (*Script, error) {
	if strings.TrimSpace(source) == "" {
		return nil, fmt.Errorf("script %q: source is required", name)
	}
	return newScript(name, entry, func() (string, error) { return source, nil }), nil
}

// NewFromFile builds a script leaf reading its source from path on every
// execution. A read failure surfaces as a FAILED result, not a constructor
// error, so a flow definition can reference a script deployed later.
func NewFromFile(name, path, entry string) (*Script, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("script %q: path is required", name)
	}
	return newScript(name, entry, func() (string, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}), nil
}

func newScript(name, entry string, load func() (string, error)) *Script {
	if strings.TrimSpace(entry) == "" {
		entry = DefaultEntry
	}
	return &Script{Base: workflow.NewBase(name, "[Script]"), entry: entry, load: load}
}

// Entry returns the configured entry function name.
func (s *Script) Entry() string { return s.entry }

// Execute interprets the source and runs the entry function against a
// context snapshot.
func (s *Script) Execute(ctx context.Context, wctx *workflow.Context) *workflow.Result {
	return s.Run(ctx, wctx, func(_ context.Context, wctx *workflow.Context, exec *workflow.Execution) *workflow.Result {
		src, err := s.load()
		if err != nil {
			return exec.Failure(fmt.Errorf("script %q: loading source: %w", s.Name(), err))
		}

		itp := interp.New(interp.Options{})
		if err := itp.Use(stdlib.Symbols); err != nil {
			return exec.Failure(fmt.Errorf("script %q: loading stdlib symbols: %w", s.Name(), err))
		}
		if _, err := itp.Eval(src); err != nil {
			return exec.Failure(fmt.Errorf("script %q: evaluating source: %w", s.Name(), err))
		}

		fn, err := s.resolveEntry(itp, src)
		if err != nil {
			return exec.Failure(err)
		}

		snapshot := wctx.Snapshot()
		switch entry := fn.Interface().(type) {
		case func(map[string]any) (map[string]any, error):
			out, err := entry(snapshot)
			if err != nil {
				return exec.Failure(err)
			}
			for k, v := range out {
				wctx.Put(k, v)
			}
		case func(map[string]any) error:
			if err := entry(snapshot); err != nil {
				return exec.Failure(err)
			}
			for k, v := range snapshot {
				wctx.Put(k, v)
			}
		default:
			return exec.Failure(fmt.Errorf("script %q: entry %q has unsupported signature %T",
				s.Name(), s.entry, fn.Interface()))
		}
		return exec.Success()
	})
}

// resolveEntry looks the entry symbol up bare first, then qualified by the
// source's package clause, then under main.
func (s *Script) resolveEntry(itp *interp.Interpreter, src string) (reflect.Value, error) {
	v, err := itp.Eval(s.entry)
	if err == nil {
		return v, nil
	}
	for _, pkg := range entryPackages(src) {
		if qv, qerr := itp.Eval(pkg + "." + s.entry); qerr == nil {
			return qv, nil
		}
	}
	return reflect.Value{}, fmt.Errorf("script %q: entry %q not found: %w", s.Name(), s.entry, err)
}

// entryPackages returns the candidate qualifiers for entry lookup: the
// declared package, if the source carries a clause, then main.
func entryPackages(src string) []string {
	pkgs := []string{"main"}
	for _, line := range strings.Split(src, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[0] == "package" {
			if fields[1] != "main" {
				pkgs = append([]string{fields[1]}, pkgs...)
			}
			break
		}
	}
	return pkgs
}
