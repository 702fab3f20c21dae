package env

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_Resolve(t *testing.T) {
	t.Setenv("POSTCHECK_TEST_API_TOKEN", "from-os")

	tests := []struct {
		name      string
		input     string
		variables map[string]string
		expected  string
	}{
		{
			name:     "no placeholders",
			input:    "http://localhost:3000",
			expected: "http://localhost:3000",
		},
		{
			name:      "dotenv variable",
			input:     "http://{{host}}:{{port}}",
			variables: map[string]string{"host": "localhost", "port": "3000"},
			expected:  "http://localhost:3000",
		},
		{
			name:     "process environment",
			input:    "Bearer {{$POSTCHECK_TEST_API_TOKEN}}",
			expected: "Bearer from-os",
		},
		{
			name:     "whitespace inside braces",
			input:    "{{ $POSTCHECK_TEST_API_TOKEN }}",
			expected: "from-os",
		},
		{
			name:     "unresolved kept",
			input:    "{{missing}}/posts",
			expected: "{{missing}}/posts",
		},
		{
			name:     "fallback",
			input:    "{{API_HOST:-http://localhost:3000}}/posts",
			expected: "http://localhost:3000/posts",
		},
		{
			name:      "fallback unused when set",
			input:     "{{API_HOST:-http://localhost:3000}}",
			variables: map[string]string{"API_HOST": "http://api.test"},
			expected:  "http://api.test",
		},
		{
			name:     "empty fallback",
			input:    "x{{ missing:- }}y",
			expected: "xy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NewResolver(tt.variables).Resolve(tt.input))
		})
	}
}

func TestResolver_Warn(t *testing.T) {
	var warnings []string
	r := NewResolver(nil)
	r.SetWarnFunc(func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	})

	r.Resolve("{{nope}} {{$POSTCHECK_TEST_UNSET_VAR}}")

	assert.Equal(t, []string{
		"unresolved variable: nope",
		"unresolved environment variable: $POSTCHECK_TEST_UNSET_VAR",
	}, warnings)
}

func TestResolver_ResolveAll(t *testing.T) {
	r := NewResolver(map[string]string{"trace": "abc"})

	assert.Equal(t,
		map[string]string{"X-Trace": "abc", "Accept": "application/json"},
		r.ResolveAll(map[string]string{"X-Trace": "{{trace}}", "Accept": "application/json"}))
	assert.Nil(t, r.ResolveAll(nil))
}

func TestResolver_Unresolved(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		variables map[string]string
		expected  []string
	}{
		{
			name:     "no variables",
			input:    "hello world",
			expected: nil,
		},
		{
			name:      "resolved variable",
			input:     "{{foo}}",
			variables: map[string]string{"foo": "bar"},
			expected:  nil,
		},
		{
			name:     "multiple unresolved variables",
			input:    "{{foo}} and {{bar}}",
			expected: []string{"foo", "bar"},
		},
		{
			name:      "mixed resolved and unresolved",
			input:     "{{foo}} and {{bar}} and {{baz}}",
			variables: map[string]string{"bar": "middle"},
			expected:  []string{"foo", "baz"},
		},
		{
			name:     "fallback counts as resolved",
			input:    "{{foo:-x}} {{$POSTCHECK_TEST_UNSET_VAR}}",
			expected: []string{"$POSTCHECK_TEST_UNSET_VAR"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NewResolver(tt.variables).Unresolved(tt.input))
		})
	}
}

func TestLoadSystemEnv(t *testing.T) {
	t.Setenv("POSTCHECK_BASE_URL", "http://env.test")
	t.Setenv("POSTCHECK_", "ignored")

	vars := LoadSystemEnv(Prefix)
	assert.Equal(t, "http://env.test", vars["BASE_URL"])
	_, hasEmpty := vars[""]
	assert.False(t, hasEmpty)

	all := LoadSystemEnv("")
	assert.Equal(t, "http://env.test", all["POSTCHECK_BASE_URL"])
}

func TestLoadDotEnvFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("POSTCHECK_TEST_A=env\nPOSTCHECK_TEST_B=env\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.local"), []byte("POSTCHECK_TEST_B=local\n"), 0644))
	t.Setenv("POSTCHECK_TEST_A", "already-set")
	t.Setenv("POSTCHECK_TEST_B", "")

	vars, err := LoadDotEnvFiles(dir)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"POSTCHECK_TEST_A": "env", "POSTCHECK_TEST_B": "local"}, vars)
	assert.Equal(t, "already-set", os.Getenv("POSTCHECK_TEST_A"))
	assert.Equal(t, "local", os.Getenv("POSTCHECK_TEST_B"))
}

func TestLoadDotEnvFiles_None(t *testing.T) {
	vars, err := LoadDotEnvFiles(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, vars)
}
