package env

import (
	"errors"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"strings"
)

// Prefix is the prefix of environment variables postcheck reads.
const Prefix = "POSTCHECK_"

// DotEnvFiles are loaded in order; later files win.
var DotEnvFiles = []string{".env", ".env.local"}

// LoadDotEnvFiles reads every DotEnvFiles entry present in dir, exports the
// merged values and returns them. Missing files are skipped.
func LoadDotEnvFiles(dir string) (map[string]string, error) {
	merged := make(map[string]string)
	for _, name := range DotEnvFiles {
		vars, err := LoadDotEnv(filepath.Join(dir, name))
		switch {
		case errors.Is(err, fs.ErrNotExist):
			continue
		case err != nil:
			return nil, err
		}
		maps.Copy(merged, vars)
	}
	Export(merged)
	return merged, nil
}

// LoadSystemEnv returns the process environment. With a prefix, only
// matching variables are returned, with the prefix stripped.
func LoadSystemEnv(prefix string) map[string]any {
	out := make(map[string]any)
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		name, matched := strings.CutPrefix(key, prefix)
		if matched && name != "" {
			out[name] = value
		}
	}
	return out
}
