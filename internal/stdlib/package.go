package stdlib

import (
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/embeddedlua/luacore/internal/ast"
	"github.com/embeddedlua/luacore/internal/diag"
	"github.com/embeddedlua/luacore/internal/interp"
	"github.com/embeddedlua/luacore/internal/parser"
	"github.com/embeddedlua/luacore/internal/value"
)

// Resolver locates and reads a required module's source. The host
// facade supplies the concrete implementation (its file-system
// Resolver, spec §4.6/module.go); stdlib only depends on this
// interface so it never imports the facade package.
type Resolver interface {
	Resolve(name string) (source string, chunkName string, err error)
}

// moduleCache collapses concurrent requires of the same module name
// onto a single load via singleflight.Group, and tracks in-flight
// names so a require cycle (A requires B requires A) is reported as
// "loop or previous error loading module" instead of deadlocking.
// Concurrent requires of the same name happen when two coroutines
// sharing one Interpreter race to require. Each PackageOpen call makes
// its own cache, so requires from different Hosts are not collapsed.
type moduleCache struct {
	group   singleflight.Group
	loading map[string]bool
}

// PackageOpen installs `package` and the global `require`, wired to
// resolver. loaded/preload follow spec §4.6's module system.
func PackageOpen(it *interp.Interpreter, resolver Resolver) {
	pkg := value.NewTable()
	loadedTable := value.NewTable()
	preloadTable := value.NewTable()
	pkg.Set("loaded", loadedTable)
	pkg.Set("preload", preloadTable)
	pkg.Set("path", "./?.lua;./?/init.lua")
	it.Globals.Set("package", pkg)

	cache := &moduleCache{loading: map[string]bool{}}

	it.Globals.Set("require", &value.Function{Name: "require", IsGo: true, Call: func(args []value.Value) ([]value.Value, error) {
		name, ok := arg(args, 0).(string)
		if !ok {
			return nil, argError("require", 0, "string", arg(args, 0))
		}
		if v := loadedTable.Get(name); v != nil {
			return []value.Value{v}, nil
		}
		if cache.loading[name] {
			return nil, value.NewError(diag.Position{}, "loop or previous error loading module '%s'", name)
		}

		raw, err, _ := cache.group.Do(name, func() (interface{}, error) {
			cache.loading[name] = true
			defer delete(cache.loading, name)

			if pre := preloadTable.Get(name); pre != nil {
				fn, ok := pre.(*value.Function)
				if !ok {
					return nil, value.NewError(diag.Position{}, "preload entry for '%s' is not a function", name)
				}
				res, err := fn.Call([]value.Value{name})
				v, err := finishRequire(loadedTable, name, res, err)
				return v, err
			}
			if resolver == nil {
				return nil, value.NewError(diag.Position{}, "module '%s' not found: no resolver installed", name)
			}
			src, chunkName, err := resolver.Resolve(name)
			if err != nil {
				return nil, value.NewError(diag.Position{}, "module '%s' not found: %v", name, err)
			}
			diags := &diag.Collector{}
			block, ok2 := parser.Parse(src, chunkName, diags)
			if !ok2 {
				return nil, value.NewError(diag.Position{}, "error loading module '%s': %s", name, firstDiagMessage(diags))
			}
			chunk := &ast.Chunk{Source: chunkName, Body: block}
			results, err := it.Run(nil, chunk, nil)
			v, err := finishRequire(loadedTable, name, results, err)
			return v, err
		})
		if err != nil {
			return nil, err
		}
		return raw.([]value.Value), nil
	}})
}

func finishRequire(loadedTable *value.Table, name string, results []value.Value, err error) ([]value.Value, error) {
	if err != nil {
		return nil, err
	}
	var v value.Value = true
	if len(results) > 0 && results[0] != nil {
		v = results[0]
	}
	loadedTable.Set(name, v)
	return []value.Value{v}, nil
}

func firstDiagMessage(c *diag.Collector) string {
	items := c.Items()
	if len(items) == 0 {
		return "parse error"
	}
	return fmt.Sprint(items[0])
}
