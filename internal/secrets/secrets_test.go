// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  map[string]string
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "deepseek-api-key", "  sk-abc123  \n")
				writeFile(t, dir, "qwen-api-key", "sk-qwen")
				return dir
			},
			want: map[string]string{
				"deepseek-api-key": "sk-abc123",
				"qwen-api-key":     "sk-qwen",
			},
		},
		{
			name: "missing directory is empty",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: map[string]string{},
		},
		{
			name: "skips empty files dotfiles and subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "anthropic-api-key", "valid-key")
				writeFile(t, dir, "openai-api-key", "   \n\t  ")
				writeFile(t, dir, ".gitkeep", "x")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: map[string]string{
				"anthropic-api-key": "valid-key",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.setup(t), zerolog.Nop())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "DEEPSEEK_API_KEY", EnvName("deepseek-api-key"))
	assert.Equal(t, "ANTHROPIC_API_KEY", EnvName("anthropic-api-key"))
}

func TestResolve(t *testing.T) {
	files := map[string]string{
		"deepseek-api-key": "from-file",
		"qwen-api-key":     "qwen-file",
	}
	env := map[string]string{
		"DEEPSEEK_API_KEY": "from-env",
		"OPENAI_API_KEY":   "openai-env",
		"QWEN_API_KEY":     "  ",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	got := Resolve(files, lookup)
	assert.Equal(t, map[string]string{
		"deepseek-api-key": "from-env",
		"qwen-api-key":     "qwen-file",
		"openai-api-key":   "openai-env",
	}, got)
	assert.Equal(t, "from-file", files["deepseek-api-key"])
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
