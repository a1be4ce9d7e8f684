package lua

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"
)

// resolverConfig is the optional "luarc.json" sitting next to an entry
// script: a human-edited file, so it is parsed as HUJSON (JSON with
// comments and trailing commas) rather than strict JSON, the same way
// a build tool's checked-in config is allowed to carry comments.
type resolverConfig struct {
	Roots []string `json:"roots"`
	Trust string   `json:"trust"`
}

// LoadResolverConfig reads "luarc.json" from dir, if present, and
// returns the module roots and trust level it names. A missing file is
// not an error: it just means the caller's own Options apply as-is.
func LoadResolverConfig(dir string) (roots []string, trust TrustLevel, found bool, err error) {
	path := filepath.Join(dir, "luarc.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, Sandbox, false, nil
		}
		return nil, Sandbox, false, fmt.Errorf("config: reading %s: %w", path, err)
	}
	standardized, err := hujson.Standardize(raw)
	if err != nil {
		return nil, Sandbox, false, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	var cfg resolverConfig
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return nil, Sandbox, false, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	level, err := parseTrustName(cfg.Trust)
	if err != nil {
		return nil, Sandbox, false, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg.Roots, level, true, nil
}

func parseTrustName(name string) (TrustLevel, error) {
	switch name {
	case "", "sandbox":
		return Sandbox, nil
	case "untrusted":
		return Untrusted, nil
	case "restricted":
		return Restricted, nil
	case "trusted":
		return Trusted, nil
	case "full-trust", "fulltrust":
		return FullTrust, nil
	default:
		return Sandbox, fmt.Errorf("unknown trust level %q", name)
	}
}
