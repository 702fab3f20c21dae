package cmd

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/abdul-hamid-achik/postcheck/packages/core/config"
	"github.com/abdul-hamid-achik/postcheck/packages/db"
	"github.com/abdul-hamid-achik/postcheck/packages/fake"
	"github.com/abdul-hamid-achik/postcheck/packages/fixture"
	"github.com/abdul-hamid-achik/postcheck/packages/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"golang.org/x/crypto/bcrypt"
)

func startMock(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := db.Open("sqlite://" + filepath.Join(t.TempDir(), "mock.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	server := mock.NewServer(store, mock.WithPasswordCost(bcrypt.MinCost))
	require.NoError(t, server.Seed(context.Background(), 100, fake.New(7)))

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// execute runs the root command with args. Flags keep their values between
// calls, so each test uses a distinct command.
func executeArgs(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRunCommand_AgainstMock(t *testing.T) {
	ts := startMock(t)
	dir := t.TempDir()
	chdir(t, dir)

	report := filepath.Join(dir, "report.json")
	tokenFile := filepath.Join(dir, "fixtures", "token.json")

	_, err := executeArgs(t, "run",
		"--base-url", ts.URL,
		"--token-file", tokenFile,
		"--output", "json",
		"--output-file", report,
	)
	require.NoError(t, err)

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	doc := gjson.ParseBytes(data)

	assert.Equal(t, ts.URL, doc.Get("baseUrl").String())
	assert.Equal(t, int64(11), doc.Get("summary.passed").Int())
	assert.Equal(t, int64(0), doc.Get("summary.failed").Int())
	assert.Len(t, doc.Get("scenarios").Array(), 11)

	token, err := fixture.NewFileStore(tokenFile).Load()
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestListCommand(t *testing.T) {
	out, err := executeArgs(t, "list", "--tags", "read")

	require.NoError(t, err)
	assert.Contains(t, out, "tags: ")
	assert.NotContains(t, out, "depends: ")
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	out, err := executeArgs(t, "init", "--base-url", "http://localhost:3000")
	require.NoError(t, err)
	assert.Contains(t, out, "postcheck project initialized!")

	cfg, err := config.LoadConfig(filepath.Join(dir, "postcheck.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000", cfg.BaseURL)
	assert.Equal(t, []string{"55", "60"}, cfg.Suite.FilterIDs)
	assert.Equal(t, "accessToken", cfg.Suite.TokenField)

	_, err = os.Stat(filepath.Join(dir, ".env.example"))
	assert.NoError(t, err)

	_, err = executeArgs(t, "init")
	var ee *exitError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, ExitUsageError, ee.code)
	assert.Contains(t, err.Error(), "already exists")
}

func TestStressCommand_JSON(t *testing.T) {
	ts := startMock(t)
	chdir(t, t.TempDir())

	out, err := executeArgs(t, "stress",
		"--base-url", ts.URL,
		"--duration", "300ms",
		"--rate", "20",
		"--no-progress",
		"--no-fixture",
		"--json",
		"--threshold", "errors<50%",
	)
	require.NoError(t, err)

	doc := gjson.Parse(out)
	assert.True(t, doc.Get("runs.total").Int() > 0, out)
	assert.True(t, doc.Get("thresholds").IsArray(), out)
}

func TestStressCommand_InvalidThreshold(t *testing.T) {
	_, err := executeArgs(t, "stress", "--threshold", "p95<soon")

	var ee *exitError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, ExitUsageError, ee.code)
}

func TestVersionCommand(t *testing.T) {
	out, err := executeArgs(t, "version")

	require.NoError(t, err)
	assert.Contains(t, out, "postcheck version dev")
}
