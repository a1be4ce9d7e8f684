package lua

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Resolver locates a required module's source by name. It mirrors
// stdlib.Resolver exactly (the facade package is the only place that
// needs to name both the interface and a concrete implementation, so
// the interface is declared once here and accepted directly where
// stdlib.PackageOpen expects its own identically-shaped interface).
type Resolver interface {
	Resolve(name string) (source string, chunkName string, err error)
}

// FileResolver searches a list of root directories for "<name>.lua",
// translating dots in the module name to path separators the way
// require's default package.path template does.
type FileResolver struct {
	Roots []string
}

// NewFileResolver builds a FileResolver over roots, defaulting to the
// current directory when roots is empty.
func NewFileResolver(roots []string) *FileResolver {
	if len(roots) == 0 {
		roots = []string{"."}
	}
	return &FileResolver{Roots: roots}
}

func (r *FileResolver) Resolve(name string) (string, string, error) {
	rel := strings.ReplaceAll(name, ".", string(filepath.Separator)) + ".lua"
	var tried []string
	for _, root := range r.Roots {
		path := filepath.Join(root, rel)
		tried = append(tried, path)
		data, err := os.ReadFile(path)
		if err == nil {
			return string(data), path, nil
		}
	}
	return "", "", fmt.Errorf("no file found (tried: %s)", strings.Join(tried, "; "))
}
