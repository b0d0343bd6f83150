package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/vigil/internal/config"
	"github.com/dyluth/vigil/internal/printer"
	"github.com/dyluth/vigil/pkg/statusbus"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the real root command with fresh flag values and returns
// everything written by cobra and the printer.
func execute(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()

	configPath, forceConfigInit, backgroundHour = "", false, -1
	watchInstanceName, watchRedisURL, watchOutputFormat, watchNoLatest = "", "", "default", false
	watchSince, watchUntil, watchKind, watchSession = "", "", "", ""
	statusInstanceName, statusRedisURL = "", ""

	buf := new(bytes.Buffer)
	prevOut, prevErr, prevColor := printer.Stdout, printer.Stderr, color.NoColor
	printer.Stdout, printer.Stderr, color.NoColor = buf, buf, true
	t.Cleanup(func() { printer.Stdout, printer.Stderr, color.NoColor = prevOut, prevErr, prevColor })

	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	// Cobra keeps the context of a previous run on subcommands
	setContext(rootCmd, ctx)

	err := rootCmd.ExecuteContext(ctx)
	return buf.String(), err
}

func setContext(cmd *cobra.Command, ctx context.Context) {
	cmd.SetContext(ctx)
	for _, sub := range cmd.Commands() {
		setContext(sub, ctx)
	}
}

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	return path
}

func TestRootCommand_ShowsHelpWhenNoSubcommand(t *testing.T) {
	out, err := execute(t, context.Background())
	require.NoError(t, err)
	assert.Contains(t, out, "Usage:")
	assert.Contains(t, out, "vigil")
	assert.Contains(t, out, "lock")
}

func TestRootCommand_RejectsUnknownFlags(t *testing.T) {
	_, err := execute(t, context.Background(), "--unknown-flag", "value")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag")
}

func TestRootCommand_Version(t *testing.T) {
	SetVersionInfo("1.2.3", "abc123", "2026-10-01")
	out, err := execute(t, context.Background(), "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "1.2.3 (commit: abc123, built: 2026-10-01)")
}

func TestConfigCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vigil", "config.yml")

	t.Run("path", func(t *testing.T) {
		out, err := execute(t, context.Background(), "config", "path", "--config", path)
		require.NoError(t, err)
		assert.Equal(t, path+"\n", out)
	})

	t.Run("init writes defaults", func(t *testing.T) {
		out, err := execute(t, context.Background(), "config", "init", "--config", path)
		require.NoError(t, err)
		assert.Contains(t, out, "✓ Wrote "+path)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		cfg, err := config.Parse(data)
		require.NoError(t, err)
		assert.Equal(t, config.Default(), cfg)
	})

	t.Run("init refuses to overwrite", func(t *testing.T) {
		out, err := execute(t, context.Background(), "config", "init", "--config", path)
		require.Error(t, err)
		assert.Equal(t, "config file already exists", err.Error())
		assert.Contains(t, out, "vigil config init --force")
	})

	t.Run("init --force overwrites", func(t *testing.T) {
		_, err := execute(t, context.Background(), "config", "init", "--force", "--config", path)
		require.NoError(t, err)
	})
}

func TestConfigShow_MasksAPIKey(t *testing.T) {
	path := writeConfig(t, "weather_api_key: s3cr3t-key\nweather_city: Berlin\n")

	out, err := execute(t, context.Background(), "config", "show", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "weather_city: Berlin")
	assert.Contains(t, out, "********")
	assert.NotContains(t, out, "s3cr3t-key")
}

func TestBackgroundCommand(t *testing.T) {
	dir := t.TempDir()
	morning := filepath.Join(dir, "morning.jpg")
	require.NoError(t, os.WriteFile(morning, []byte("jpeg"), 0o600))

	path := writeConfig(t, "background_image: /img/static.jpg\n"+
		"dim_level: 0.5\n"+
		"tod_enabled: true\n"+
		"tod_morning_image: "+morning+"\n"+
		"tod_night_image: "+filepath.Join(dir, "missing.jpg")+"\n")

	t.Run("period image", func(t *testing.T) {
		out, err := execute(t, context.Background(), "background", "--hour", "9", "--config", path)
		require.NoError(t, err)
		assert.Contains(t, out, "period: morning")
		assert.Contains(t, out, "image:  "+morning)
		assert.Contains(t, out, "dim:    0.25")
	})

	t.Run("missing night image falls back to static", func(t *testing.T) {
		out, err := execute(t, context.Background(), "background", "--hour", "23", "--config", path)
		require.NoError(t, err)
		assert.Contains(t, out, "period: static")
		assert.Contains(t, out, "image:  /img/static.jpg")
		assert.Contains(t, out, "dim:    0.50")
	})

	t.Run("invalid hour", func(t *testing.T) {
		_, err := execute(t, context.Background(), "background", "--hour", "24", "--config", path)
		require.Error(t, err)
		assert.Equal(t, "invalid hour", err.Error())
	})
}

func TestWatchCommand_Errors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "none.yml")

	_, err := execute(t, context.Background(), "watch", "--output", "xml", "--config", missing)
	require.Error(t, err)
	assert.Equal(t, "invalid output format", err.Error())

	_, err = execute(t, context.Background(), "watch", "--since", "10m", "--until", "1h", "--config", missing)
	require.Error(t, err)
	assert.Equal(t, "invalid time range", err.Error())

	out, err := execute(t, context.Background(), "watch", "--config", missing)
	require.Error(t, err)
	assert.Equal(t, "status bus not configured", err.Error())
	assert.Contains(t, out, "vigil watch --redis")
}

func TestWatchCommand_PrintsLatestThenStreams(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := statusbus.NewClientFromURL("redis://"+mr.Addr(), "desk")
	require.NoError(t, err)
	defer client.Close()

	sessionID := uuid.New().String()
	e, err := statusbus.NewEvent(sessionID, statusbus.KindAuth, time.Now(), map[string]any{"state": "failed", "failures": 3})
	require.NoError(t, err)
	require.NoError(t, client.Publish(context.Background(), e))

	e, err = statusbus.NewEvent(sessionID, statusbus.KindEditor, time.Now(), map[string]any{"running": true, "file_name": "main.go"})
	require.NoError(t, err)
	require.NoError(t, client.Publish(context.Background(), e))

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	out, err := execute(t, ctx, "watch", "--redis", "redis://"+mr.Addr(), "--name", "desk",
		"--kind", "auth", "--config", filepath.Join(t.TempDir(), "none.yml"))
	require.NoError(t, err)
	assert.Contains(t, out, "🔑 Auth: failed (attempt 3)")
	assert.NotContains(t, out, "Editor")
}

func TestStatusCommand(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := statusbus.NewClientFromURL("redis://"+mr.Addr(), "desk")
	require.NoError(t, err)
	defer client.Close()

	e, err := statusbus.NewEvent(uuid.New().String(), statusbus.KindEditor, time.Now(), map[string]any{"running": true, "file_name": "main.go"})
	require.NoError(t, err)
	require.NoError(t, client.Publish(context.Background(), e))

	out, err := execute(t, context.Background(), "status", "--redis", "redis://"+mr.Addr(), "--name", "desk",
		"--config", filepath.Join(t.TempDir(), "none.yml"))
	require.NoError(t, err)
	assert.Contains(t, out, "Status for instance 'desk':")
	assert.Contains(t, out, "📝 Editor: main.go")

	_, err = execute(t, context.Background(), "status", "--redis", "redis://"+mr.Addr(), "--name", "Not Valid",
		"--config", filepath.Join(t.TempDir(), "none.yml"))
	require.Error(t, err)
	assert.Equal(t, "invalid instance name", err.Error())
}
