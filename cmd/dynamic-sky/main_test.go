package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	err := error(&ExitError{Code: 2, Err: inner})

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 2, exitErr.Code)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "boom", err.Error())
}

// runCLI executes the root command against an isolated base directory.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	base := t.TempDir()
	cfgPath := filepath.Join(base, "dynamic-sky.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("paths:\n  base_dir: "+base+"\n"), 0644))

	t.Setenv("OPENWEATHER_API_KEY", "")
	t.Setenv("LAT", "")
	t.Setenv("LON", "")
	t.Setenv("TZ", "UTC")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--config", cfgPath, "--secrets", filepath.Join(base, "missing.env")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestStateCommand_FallbackNoon(t *testing.T) {
	out, err := runCLI(t, "state", "--at", "12:30")
	require.NoError(t, err)

	var st map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &st))

	assert.Equal(t, "day", st["phase"])
	assert.Equal(t, true, st["sun_visible"])
	assert.Equal(t, false, st["moon_visible"])
	assert.Equal(t, "none", st["sky_tint"])
	assert.Equal(t, map[string]any{"x": float64(1920), "y": float64(759)}, st["sun"])
}

func TestStateCommand_InvalidAt(t *testing.T) {
	_, err := runCLI(t, "state", "--at", "not-a-time")
	require.Error(t, err)

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 2, exitErr.Code)
}

func TestAstroCommand_Fallback(t *testing.T) {
	out, err := runCLI(t, "astro")
	require.NoError(t, err)

	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "fallback", report["source"])
	assert.Equal(t, true, report["fallback"])
	assert.Contains(t, report, "sunrise")
	assert.Contains(t, report, "sunset")
}

func TestAssetsCommand_Force(t *testing.T) {
	_, err := runCLI(t, "assets", "--force")
	require.NoError(t, err)

	base := viper.GetString("paths.base_dir")
	_, err = os.Stat(filepath.Join(base, "assets", "sun.svg"))
	assert.NoError(t, err)
}
