package env

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

var keyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// LoadDotEnv reads a .env file. Nothing is exported; see Export.
func LoadDotEnv(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open env file: %w", err)
	}
	defer file.Close()

	vars, err := ParseDotEnv(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return vars, nil
}

// ParseDotEnv reads KEY=value lines. An optional "export " prefix is
// dropped. Double-quoted values expand \n, \t, \" and \\; single-quoted
// values are literal. In unquoted values a " #" starts a comment.
func ParseDotEnv(r io.Reader) (map[string]string, error) {
	vars := make(map[string]string)
	scanner := bufio.NewScanner(r)

	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}

		rawKey, rawValue, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: expected KEY=value", lineNo)
		}
		key := strings.TrimSpace(rawKey)
		if rest, found := strings.CutPrefix(key, "export "); found {
			key = strings.TrimSpace(rest)
		}
		if !keyPattern.MatchString(key) {
			return nil, fmt.Errorf("line %d: invalid variable name %q", lineNo, key)
		}

		value, err := dotEnvValue(strings.TrimSpace(rawValue))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		vars[key] = value
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading env file: %w", err)
	}
	return vars, nil
}

func dotEnvValue(v string) (string, error) {
	if v == "" {
		return "", nil
	}

	switch quote := v[0]; quote {
	case '"', '\'':
		end := strings.LastIndexByte(v, quote)
		if end == 0 {
			return "", fmt.Errorf("unterminated %c quote", quote)
		}
		inner := v[1:end]
		if quote == '\'' {
			return inner, nil
		}
		return unescapeDouble(inner), nil
	}

	if i := strings.Index(v, " #"); i >= 0 {
		v = strings.TrimSpace(v[:i])
	}
	return v, nil
}

var doubleQuoteEscapes = strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\"`, `"`, `\\`, `\`)

func unescapeDouble(s string) string {
	return doubleQuoteEscapes.Replace(s)
}

// Export sets every variable that is unset or empty in the process
// environment. Non-empty values win.
func Export(vars map[string]string) {
	for k, v := range vars {
		if os.Getenv(k) == "" {
			_ = os.Setenv(k, v)
		}
	}
}
