// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets resolves model API keys. Keys come from a directory with
// one plain-text file per key (file name is the key name) and can be
// overridden by environment variables.
//
// Known keys: anthropic-api-key, deepseek-api-key, qwen-api-key, openai-api-key.
package secrets

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Known lists the key names the CLI looks for.
var Known = []string{"anthropic-api-key", "deepseek-api-key", "qwen-api-key", "openai-api-key"}

// Load reads every regular, non-hidden file in dir into a name to trimmed
// contents map. A missing directory yields an empty map. Unreadable files
// are logged and skipped.
func Load(dir string, log zerolog.Logger) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	keys := make(map[string]string, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() && entry.Type()&fs.ModeSymlink == 0 {
			continue
		}
		if strings.HasPrefix(name, ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn().Err(err).Str("secret", name).Msg("could not read secret")
			continue
		}
		if v := strings.TrimSpace(string(data)); v != "" {
			keys[name] = v
		}
	}
	return keys, nil
}

// EnvName returns the environment variable that overrides key name
// ("deepseek-api-key" becomes "DEEPSEEK_API_KEY").
func EnvName(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

// Resolve overlays environment overrides for the Known keys on top of keys.
// lookup is normally os.LookupEnv. keys is not modified.
func Resolve(keys map[string]string, lookup func(string) (string, bool)) map[string]string {
	out := make(map[string]string, len(keys)+len(Known))
	for k, v := range keys {
		out[k] = v
	}
	for _, name := range Known {
		if v, ok := lookup(EnvName(name)); ok {
			if v = strings.TrimSpace(v); v != "" {
				out[name] = v
			}
		}
	}
	return out
}
