package cmd

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/postcheck/packages/core/config"
	"github.com/abdul-hamid-achik/postcheck/packages/core/env"
	"github.com/abdul-hamid-achik/postcheck/packages/core/workflow"
	"github.com/abdul-hamid-achik/postcheck/packages/fixture"
	"github.com/abdul-hamid-achik/postcheck/packages/http"
	"github.com/abdul-hamid-achik/postcheck/packages/suite"
	"github.com/spf13/cobra"
)

// connFlags are the flags every command that talks to the API shares.
type connFlags struct {
	baseURL   string
	config    string
	envFile   string
	timeout   string
	proxy     string
	insecure  bool
	tokenFile string
	noFixture bool
	noColor   bool
}

func (f *connFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.baseURL, "base-url", "u", "", "Base URL of the API (env: POSTCHECK_BASE_URL)")
	fs.StringVar(&f.config, "config", "", "Path to config file (default: postcheck.yaml in the working directory)")
	fs.StringVar(&f.envFile, "env-file", "", "Extra .env file for {{variable}} interpolation")
	fs.StringVar(&f.timeout, "timeout", "30s", "Request timeout (e.g., 30s, 1m) (env: POSTCHECK_TIMEOUT in ms)")
	fs.StringVar(&f.proxy, "proxy", "", "Proxy URL for HTTP requests (env: POSTCHECK_PROXY)")
	fs.BoolVarP(&f.insecure, "insecure", "k", false, "Disable SSL certificate validation")
	fs.StringVar(&f.tokenFile, "token-file", "", "Where the bearer token is saved (default: "+fixture.DefaultPath+")")
	fs.BoolVar(&f.noFixture, "no-fixture", false, "Keep the bearer token in memory instead of a file")
	fs.BoolVar(&f.noColor, "no-color", false, "Disable colored output (env: POSTCHECK_NO_COLOR)")
}

// apply copies explicitly set flags over cfg.
func (f *connFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	fs := cmd.Flags()
	if fs.Changed("base-url") {
		cfg.BaseURL = f.baseURL
	}
	if fs.Changed("timeout") {
		d, err := time.ParseDuration(f.timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout value %q: %w (use format like 30s, 1m, 500ms)", f.timeout, err)
		}
		cfg.Timeout = int(d.Milliseconds())
	}
	if fs.Changed("proxy") {
		cfg.Proxy = f.proxy
	}
	if fs.Changed("insecure") {
		cfg.ValidateSSL = config.BoolPtr(!f.insecure)
	}
	if fs.Changed("token-file") {
		cfg.TokenFile = f.tokenFile
	}
	if fs.Changed("no-fixture") {
		cfg.NoFixture = config.BoolPtr(f.noFixture)
	}
	if fs.Changed("no-color") {
		cfg.NoColor = config.BoolPtr(f.noColor)
	}
	return nil
}

// loadSettings layers defaults, the config file, POSTCHECK_* variables and
// flags, then expands {{variables}} from .env files. Errors are config
// errors.
func loadSettings(cmd *cobra.Command, f *connFlags, extra func(*config.Config) error) (*config.Config, error) {
	// The explicit file is exported first so that .env cannot shadow it.
	var fileVars map[string]string
	if f.envFile != "" {
		var err error
		if fileVars, err = env.LoadDotEnv(f.envFile); err != nil {
			return nil, fmt.Errorf("loading env file: %w", err)
		}
		env.Export(fileVars)
	}

	vars, err := env.LoadDotEnvFiles(".")
	if err != nil {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	maps.Copy(vars, fileVars)

	cfg, err := config.LoadConfig(f.config)
	if err != nil {
		return nil, err
	}

	envCfg, err := config.FromEnv(env.LoadSystemEnv(env.Prefix))
	if err != nil {
		return nil, err
	}
	cfg = cfg.Merge(envCfg)

	if err := f.apply(cmd, cfg); err != nil {
		return nil, err
	}
	if extra != nil {
		if err := extra(cfg); err != nil {
			return nil, err
		}
	}

	resolver := env.NewResolver(vars)
	resolver.SetWarnFunc(func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, "warning: "+format+"\n", args...)
	})

	cfg.BaseURL = strings.TrimRight(resolver.Resolve(cfg.BaseURL), "/")
	cfg.Proxy = resolver.Resolve(cfg.Proxy)
	cfg.TokenFile = resolver.Resolve(cfg.TokenFile)
	cfg.Headers = resolver.ResolveAll(cfg.Headers)
	if cfg.WaitFor != nil {
		cfg.WaitFor.URL = resolver.Resolve(cfg.WaitFor.URL)
	}

	if names := resolver.Unresolved(cfg.BaseURL); len(names) > 0 {
		return nil, fmt.Errorf("base URL %q uses undefined variables: %s", cfg.BaseURL, strings.Join(names, ", "))
	}
	if err := http.ValidateURL(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", cfg.BaseURL, err)
	}
	return cfg, nil
}

func tokenStore(cfg *config.Config) fixture.Store {
	if cfg.GetNoFixture() {
		return fixture.NewMemoryStore()
	}
	return fixture.NewFileStore(cfg.TokenFile)
}

func workflowConfig(cfg *config.Config) *workflow.Config {
	wc := &workflow.Config{
		BaseURL:        cfg.BaseURL,
		Verbose:        cfg.GetVerbose(),
		Timeout:        time.Duration(cfg.Timeout) * time.Millisecond,
		FollowRedirect: cfg.GetFollowRedirects(),
		SkipTLSVerify:  !cfg.GetValidateSSL(),
		Proxy:          cfg.Proxy,
		Headers:        cfg.Headers,
		Bail:           cfg.GetBail(),
		SchemaDir:      cfg.SchemaDir,
	}
	if cfg.WaitFor != nil && cfg.WaitFor.URL != "" {
		wc.WaitFor = &workflow.WaitForConfig{
			URL:      cfg.WaitFor.URL,
			Status:   cfg.WaitFor.Status,
			Timeout:  time.Duration(cfg.WaitFor.Timeout) * time.Millisecond,
			Interval: time.Duration(cfg.WaitFor.Interval) * time.Millisecond,
		}
	}
	return wc
}

func suiteConfig(s config.Suite) suite.Config {
	return suite.Config{
		RegisterPath:    s.RegisterPath,
		TokenField:      s.TokenField,
		PostsPath:       s.PostsPath,
		ProtectedPrefix: s.ProtectedPrefix,
		Page:            s.Page,
		Limit:           s.Limit,
		FilterIDs:       s.FilterIDs,
		MissingUpdateID: s.MissingUpdateID,
		MissingDeleteID: s.MissingDeleteID,
		StrictFilter:    s.GetStrictFilter(),
	}.WithDefaults()
}

// exitCodeFor maps a run outcome to the process exit code.
func exitCodeFor(result *workflow.RunResult, err error) int {
	if err != nil {
		switch {
		case workflow.IsNetworkError(err):
			return ExitNetworkError
		case errors.Is(err, context.Canceled):
			return ExitTestFailure
		default:
			return ExitConfigError
		}
	}
	if result == nil || result.Failed == 0 {
		return ExitSuccess
	}
	if result.HasNetworkErrors() {
		return ExitNetworkError
	}
	return ExitTestFailure
}

// interruptContext is cancelled on SIGINT or SIGTERM.
func interruptContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\nReceived interrupt, stopping gracefully...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
