package lua

import (
	"encoding/hex"
	"sync"

	"golang.org/x/crypto/blake2b"

	"github.com/embeddedlua/luacore/internal/ast"
)

// compileCache memoizes compile() by a blake2b digest of (chunkName,
// source), so a Host that re-Executes the same script body (e.g. a
// hot request handler) skips re-parsing. Keyed by content hash rather
// than chunkName alone so an edited file under the same name busts
// the cache automatically.
type compileCache struct {
	mu      sync.RWMutex
	entries map[string]*ast.Chunk
}

func newCompileCache() *compileCache {
	return &compileCache{entries: make(map[string]*ast.Chunk)}
}

func cacheKey(chunkName, source string) string {
	h := blake2b.Sum256([]byte(chunkName + "\x00" + source))
	return hex.EncodeToString(h[:])
}

func (c *compileCache) get(chunkName, source string) (*ast.Chunk, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	chunk, ok := c.entries[cacheKey(chunkName, source)]
	return chunk, ok
}

func (c *compileCache) put(chunkName, source string, chunk *ast.Chunk) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(chunkName, source)] = chunk
}
