package lua

import (
	"github.com/embeddedlua/luacore/internal/value"
)

// TrustLevel is the host's sandboxing tier, spec §4.6: each level
// grants a fixed library allowlist and removes specific base-library
// globals rather than rewriting script source.
type TrustLevel int

const (
	Untrusted TrustLevel = iota
	Sandbox
	Restricted
	Trusted
	FullTrust
)

func (t TrustLevel) String() string {
	switch t {
	case Untrusted:
		return "untrusted"
	case Sandbox:
		return "sandbox"
	case Restricted:
		return "restricted"
	case Trusted:
		return "trusted"
	case FullTrust:
		return "full-trust"
	default:
		return "unknown"
	}
}

// Policy names the libraries available and the base-library globals
// blocked at a given trust level.
type Policy struct {
	Level           TrustLevel
	AllowedLibs     map[string]bool
	BlockedGlobals  []string
	ForbiddenPrefix []string // module-name prefixes listed for the level; `require` does not consult them
}

// AllowsLibrary reports whether lib may be opened under this policy.
func (p Policy) AllowsLibrary(lib string) bool { return p.AllowedLibs[lib] }

// untrustedBlockedGlobals is every base-library global spec §4.6 says
// Untrusted must not see: file/code loading, anything that can touch a
// metatable or bypass it (rawget/rawset/rawequal/rawlen,
// getmetatable/setmetatable), and anything that can observe or
// surface a Go-level error or trigger a collection cycle
// (pcall/xpcall/error/warn/collectgarbage). require is blocked too,
// since at Untrusted no module can be required: package is never
// opened at this level (see NewHost), so module-by-module blocking
// would be redundant, but require is listed explicitly so Invariant 9
// ("for every blocked function f at trust T, type(f) returns nil")
// holds even if package ever gets opened unconditionally by mistake.
var untrustedBlockedGlobals = []string{
	"dofile", "loadfile", "load", "require",
	"collectgarbage", "rawget", "rawset", "rawequal", "rawlen",
	"getmetatable", "setmetatable", "pcall", "xpcall", "error", "warn",
}

// PolicyFor returns the default policy table for level (spec §4.6):
// Untrusted gets only the pure math/string surface with every base
// global able to touch a metatable, the host process, or the error
// channel removed; each level up adds one more capability area, with
// package/require arriving only at Trusted and FullTrust adding debug
// on top of everything Trusted has.
func PolicyFor(level TrustLevel) Policy {
	switch level {
	case Untrusted:
		// package/require is never in AllowedLibs at this level, so
		// NewHost never calls stdlib.PackageOpen and no module, by any
		// name, can be required — a stronger guarantee than a prefix
		// denylist could give.
		return Policy{
			Level:          Untrusted,
			AllowedLibs:    libSet("string", "math"),
			BlockedGlobals: untrustedBlockedGlobals,
		}
	case Sandbox:
		return Policy{
			Level:          Sandbox,
			AllowedLibs:    libSet("string", "table", "math", "utf8", "coroutine"),
			BlockedGlobals: []string{"dofile", "loadfile"},
		}
	case Restricted:
		return Policy{
			Level:           Restricted,
			AllowedLibs:     libSet("string", "table", "math", "utf8", "coroutine", "os"),
			BlockedGlobals:  []string{"dofile", "loadfile"},
			ForbiddenPrefix: []string{"os.", "io."},
		}
	case Trusted:
		return Policy{
			Level:       Trusted,
			AllowedLibs: libSet("string", "table", "math", "utf8", "coroutine", "os", "io", "package"),
		}
	case FullTrust:
		return Policy{
			Level:       FullTrust,
			AllowedLibs: libSet("string", "table", "math", "utf8", "coroutine", "os", "io", "package", "debug"),
		}
	}
	return Policy{}
}

func libSet(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// applySecurityFilter removes the policy's blocked base-library
// globals from g, matching spec §4.6's "fresh globals table
// construction" approach. Libraries are not handled here: NewHost
// opens only those in AllowedLibs, so a forbidden library is never
// installed in the first place.
func applySecurityFilter(g *value.Table, p Policy) {
	for _, name := range p.BlockedGlobals {
		g.Set(name, nil)
	}
}
