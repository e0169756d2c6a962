package main

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/prop/internal/config"
	"github.com/vango-dev/prop/internal/errors"
)

// execute runs propctl with args and stdin and returns what it printed on
// stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd(&app{})
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&errOut)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func testApp() *app {
	return &app{
		cfg:    config.New(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestVersionShort(t *testing.T) {
	out, err := execute(t, "", "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, version+"\n", out)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "propctl "+version)
	assert.Contains(t, out, "Go version:")
}

func TestVersionIgnoresBrokenConfig(t *testing.T) {
	t.Setenv("PROPCTL_LOG_LEVEL", "loud")
	_, err := execute(t, "", "version", "--short")
	assert.NoError(t, err)
}

func TestConfigPrintsEffectiveConfig(t *testing.T) {
	t.Setenv("PROPCTL_SERVE_ADDR", ":9999")

	out, err := execute(t, "", "config")
	require.NoError(t, err)
	assert.Contains(t, out, "level: info")
	assert.Contains(t, out, ":9999")
}

func TestConfigFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644))

	out, err := execute(t, "", "--config", path, "config")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# "+path+"\n"))
	assert.Contains(t, out, "level: debug")
}

func TestInvalidConfigFails(t *testing.T) {
	t.Setenv("PROPCTL_LOG_FORMAT", "xml")

	_, err := execute(t, "", "config")
	assert.Equal(t, "E102", errors.Code(err))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger := newLogger(&buf, config.LogConfig{Level: "warn", Format: "json"})
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"k":"v"`)

	buf.Reset()
	newLogger(&buf, config.LogConfig{Level: "debug", Format: "text"}).Debug("text line")
	assert.Contains(t, buf.String(), "msg=\"text line\"")
}

func TestReport(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	coded := errors.New("E102").WithDetail("log.level is \"loud\".")

	tests := []struct {
		name     string
		format   string
		noColor  bool
		err      error
		wantCode int
		want     []string
	}{
		{"nil", "", false, nil, 0, nil},
		{"text", "text", true, coded, exitConfig, []string{"ERROR E102: Invalid configuration value", `log.level is "loud".`}},
		{"compact", "compact", false, coded, exitConfig, []string{"E102: Invalid configuration value\n"}},
		{"json", "json", false, coded, exitConfig, []string{`"code":"E102"`, `"category":"config"`}},
		{"runtime", "compact", false, errors.New("E031"), exitFailure, []string{"E031: Redis publish failed"}},
		{"uncoded", "compact", false, stderrors.New("unknown flag: --nope"), exitCLI, []string{"E204: Command failed: unknown flag: --nope"}},
		{"bad format", "xml", true, coded, exitConfig, []string{`Unknown error format "xml".`, "ERROR E102"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer errors.SetColors(true)
			var buf bytes.Buffer
			a := &app{errorFormat: tt.format, noColor: tt.noColor}

			assert.Equal(t, tt.wantCode, a.report(&buf, tt.err))
			for _, want := range tt.want {
				assert.Contains(t, buf.String(), want)
			}
			if tt.noColor {
				assert.NotContains(t, buf.String(), "\033[")
			}
		})
	}
}

func TestReportHonoursNoColorEnv(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	defer errors.SetColors(true)

	var buf bytes.Buffer
	(&app{}).report(&buf, errors.New("E200"))
	assert.Contains(t, buf.String(), "ERROR E200")
	assert.NotContains(t, buf.String(), "\033[")
}

func TestUnknownFlagIsCLIError(t *testing.T) {
	_, err := execute(t, "", "watch", "--nope")
	require.Error(t, err)
	assert.Equal(t, exitCLI, exitCode(err))
}

func TestErrorsList(t *testing.T) {
	out, err := execute(t, "", "errors")
	require.NoError(t, err)
	assert.Contains(t, out, "E030  adapter  Redis subscription failed\n")
	assert.Contains(t, out, "E204  cli      Command failed\n")
}

func TestErrorsExplain(t *testing.T) {
	defer errors.SetColors(true)

	out, err := execute(t, "", "--no-color", "errors", "e030")
	require.NoError(t, err)
	assert.Contains(t, out, "ERROR E030: Redis subscription failed")
	assert.NotContains(t, out, "\033[")
}

func TestErrorsExplainUnknown(t *testing.T) {
	_, err := execute(t, "", "errors", "E999")
	assert.Equal(t, "E204", errors.Code(err))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{errors.New("E102"), exitConfig},
		{errors.New("E200"), exitCLI},
		{errors.New("E030"), exitFailure},
		{stderrors.New("accepts at most 1 arg(s)"), exitCLI},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exitCode(tt.err), "%v", tt.err)
	}
}
