package env

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDotEnv(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    map[string]string
	}{
		{"simple", "POSTCHECK_TOKEN_FILE=fixtures/ci.json", map[string]string{"POSTCHECK_TOKEN_FILE": "fixtures/ci.json"}},
		{"several", "A=1\nB=2\n\n\nC=3", map[string]string{"A": "1", "B": "2", "C": "3"}},
		{"double quoted", `API_KEY="secret with spaces"`, map[string]string{"API_KEY": "secret with spaces"}},
		{"double quoted escapes", `MSG="line1\nline2 \"q\""`, map[string]string{"MSG": "line1\nline2 \"q\""}},
		{"single quoted is literal", `MSG='a\nb # not a comment'`, map[string]string{"MSG": `a\nb # not a comment`}},
		{"comments", "# heading\nAPI_KEY=secret\n  # indented", map[string]string{"API_KEY": "secret"}},
		{"inline comment", "API_KEY=secret # rotate monthly", map[string]string{"API_KEY": "secret"}},
		{"hash without space", "COLOR=#ff0000", map[string]string{"COLOR": "#ff0000"}},
		{"whitespace", "  API_KEY  =  secret  ", map[string]string{"API_KEY": "secret"}},
		{"equals in value", "DSN=postgres://u:p@host/db?ssl=true", map[string]string{"DSN": "postgres://u:p@host/db?ssl=true"}},
		{"export prefix", "export POSTCHECK_BASE_URL=http://localhost:3000", map[string]string{"POSTCHECK_BASE_URL": "http://localhost:3000"}},
		{"empty value", "EMPTY=", map[string]string{"EMPTY": ""}},
		{"empty", "", map[string]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDotEnv(strings.NewReader(tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDotEnv_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{"missing equals", "A=1\nJUSTAWORD", "line 2: expected KEY=value"},
		{"bad key", "1ABC=x", `invalid variable name "1ABC"`},
		{"empty key", "=x", `invalid variable name ""`},
		{"unterminated quote", `TOKEN="abc`, "unterminated \" quote"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDotEnv(strings.NewReader(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("A=1\nB\n"), 0644))

	_, err := LoadDotEnv(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)

	_, err = LoadDotEnv(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExport(t *testing.T) {
	t.Setenv("POSTCHECK_TEST_SET", "keep")
	t.Setenv("POSTCHECK_TEST_EMPTY", "")

	Export(map[string]string{
		"POSTCHECK_TEST_SET":   "override",
		"POSTCHECK_TEST_EMPTY": "filled",
	})

	assert.Equal(t, "keep", os.Getenv("POSTCHECK_TEST_SET"))
	assert.Equal(t, "filled", os.Getenv("POSTCHECK_TEST_EMPTY"))
}
