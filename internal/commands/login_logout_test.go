package commands_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	flag "github.com/spf13/pflag"

	"fluxtodo/internal/commands"
	"fluxtodo/internal/config"
	"fluxtodo/internal/exitcode"
)

const testOAuthClient = `{"installed":{"client_id":"test","client_secret":"test","redirect_uris":["http://localhost"]}}`

func googleConfig(t *testing.T, quiet bool) *config.Config {
	t.Helper()
	cfg, err := config.New(t.TempDir())
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg.Quiet = quiet
	return cfg
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// TestLoginCommand_NoOAuthClient verifies login fails without oauth_client.json
func TestLoginCommand_NoOAuthClient(t *testing.T) {
	cfg := googleConfig(t, false)

	var outBuf, errBuf bytes.Buffer
	code := (&commands.LoginCmd{}).Run(context.Background(), cfg, nil, nil, &outBuf, &errBuf)

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if outBuf.String() != "" {
		t.Errorf("expected no stdout, got %q", outBuf.String())
	}
	if !strings.HasPrefix(errBuf.String(), "error: oauth_client.json not found in ") {
		t.Errorf("unexpected stderr: %q", errBuf.String())
	}
}

// TestLoginCommand_OtherBackend verifies login is a no-op for backends that
// take their identity from config.toml
func TestLoginCommand_OtherBackend(t *testing.T) {
	cfg := googleConfig(t, false)
	cfg.Backend = config.BackendSQLite

	var outBuf, errBuf bytes.Buffer
	code := (&commands.LoginCmd{}).Run(context.Background(), cfg, nil, nil, &outBuf, &errBuf)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if !strings.Contains(outBuf.String(), "needs no login") {
		t.Errorf("unexpected stdout: %q", outBuf.String())
	}
}

// TestLoginCommand_TokenWithoutRefresh verifies login does not accept a
// token that cannot be refreshed
func TestLoginCommand_TokenWithoutRefresh(t *testing.T) {
	tokens := map[string]string{
		"no refresh token": `{"access_token":"test","token_type":"Bearer","expiry":"2020-01-01T00:00:00Z"}`,
		"corrupt":          `{not json`,
	}
	for name, token := range tokens {
		t.Run(name, func(t *testing.T) {
			cfg := googleConfig(t, false)
			writeFile(t, cfg.OAuthClientPath(), testOAuthClient)
			writeFile(t, cfg.TokenPath(), token)

			// Cancelled up front so the command does not wait for a callback.
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			var outBuf, errBuf bytes.Buffer
			code := (&commands.LoginCmd{}).Run(ctx, cfg, nil, nil, &outBuf, &errBuf)

			if outBuf.String() == "already logged in\n" {
				t.Error("should not say 'already logged in'")
			}
			if code != exitcode.AuthError {
				t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
			}
		})
	}
}

// TestLogoutCommand_OnlyRemovesToken verifies logout only removes token.json
func TestLogoutCommand_OnlyRemovesToken(t *testing.T) {
	cfg := googleConfig(t, false)
	writeFile(t, cfg.OAuthClientPath(), testOAuthClient)
	writeFile(t, cfg.TokenPath(), `{"access_token":"test","refresh_token":"test"}`)

	var outBuf, errBuf bytes.Buffer
	code := (&commands.LogoutCmd{}).Run(context.Background(), cfg, nil, nil, &outBuf, &errBuf)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if errBuf.String() != "" {
		t.Errorf("expected no stderr, got %q", errBuf.String())
	}
	if outBuf.String() != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", outBuf.String())
	}
	if _, err := os.Stat(cfg.TokenPath()); !os.IsNotExist(err) {
		t.Error("token.json should have been deleted")
	}
	if _, err := os.Stat(filepath.Join(cfg.Dir, config.OAuthClientFile)); err != nil {
		t.Error("oauth_client.json should NOT have been deleted")
	}
}

// TestLogoutCommand_NotLoggedIn verifies logout handles not being logged in
func TestLogoutCommand_NotLoggedIn(t *testing.T) {
	for _, quiet := range []bool{false, true} {
		cfg := googleConfig(t, quiet)

		var outBuf, errBuf bytes.Buffer
		code := (&commands.LogoutCmd{}).Run(context.Background(), cfg, nil, nil, &outBuf, &errBuf)

		if code != exitcode.Success {
			t.Errorf("quiet=%v: expected exit code %d, got %d", quiet, exitcode.Success, code)
		}
		want := "not logged in\n"
		if quiet {
			want = ""
		}
		if outBuf.String() != want {
			t.Errorf("quiet=%v: expected %q, got %q", quiet, want, outBuf.String())
		}
	}
}

// TestLogoutCommand_All verifies --all also removes the OAuth client file
func TestLogoutCommand_All(t *testing.T) {
	cfg := googleConfig(t, false)
	writeFile(t, cfg.OAuthClientPath(), testOAuthClient)
	writeFile(t, cfg.TokenPath(), `{"access_token":"test","refresh_token":"test"}`)

	cmd := &commands.LogoutCmd{}
	fs := flag.NewFlagSet("logout", flag.ContinueOnError)
	cmd.RegisterFlags(fs)
	if err := fs.Parse([]string{"-a"}); err != nil {
		t.Fatalf("parse: %v", err)
	}

	var outBuf, errBuf bytes.Buffer
	code := cmd.Run(context.Background(), cfg, nil, fs.Args(), &outBuf, &errBuf)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, errBuf.String())
	}
	for _, path := range []string{cfg.TokenPath(), cfg.OAuthClientPath()} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("%s should have been deleted", filepath.Base(path))
		}
	}
}

// TestLogoutCommand_RejectsArguments verifies logout takes no positional
// arguments
func TestLogoutCommand_RejectsArguments(t *testing.T) {
	cfg := googleConfig(t, false)

	var outBuf, errBuf bytes.Buffer
	code := (&commands.LogoutCmd{}).Run(context.Background(), cfg, nil, []string{"now"}, &outBuf, &errBuf)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if errBuf.String() != "error: unexpected argument: now\n" {
		t.Errorf("unexpected stderr: %q", errBuf.String())
	}
}
