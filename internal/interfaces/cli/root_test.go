package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/RiskOverlay/pkg/errors"
)

const alertsGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"id": "a1"},
     "geometry": {"type": "Polygon", "coordinates": [[[-52,-30],[-51,-30],[-51,-29],[-52,-29],[-52,-30]]]}}
  ]
}`

const hospitalsCSV = "nome;x;y\n" +
	"Hospital A;-51.5;-29.5\n" +
	"Hospital B;-50.0;-29.5\n" +
	"Hospital C;-51.5;-31.0\n"

// fixture writes a dataset, an alert feed file and a config pointing at
// both, and returns the config path.
func fixture(t *testing.T, feedURL string) string {
	t.Helper()
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "hospitais.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(hospitalsCSV), 0o600))

	if feedURL == "" {
		alerts := filepath.Join(dir, "alerts.geojson")
		require.NoError(t, os.WriteFile(alerts, []byte(alertsGeoJSON), 0o600))
		feedURL = "file://" + alerts
	}

	cfg := fmt.Sprintf(`
log:
  level: error
feed:
  url: %s
datasets:
  - name: hospitais
    category: hospital
    path: %s
`, feedURL, csvPath)
	path := filepath.Join(dir, "riskoverlay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestNewRootCommand_Structure(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "riskoverlay", cmd.Use)
	assert.NotEmpty(t, cmd.Short)

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"run", "region", "serve", "events", "status", "version"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}

	for _, flag := range []string{"config", "env-file", "log-level", "output", "timeout"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "missing flag %q", flag)
	}
	assert.Equal(t, OutputText, cmd.PersistentFlags().Lookup("output").DefValue)
}

func TestRoot_InvalidOutputFormat(t *testing.T) {
	_, _, err := execute(t, "--config", fixture(t, ""), "-o", "yaml", "run")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestRoot_MissingConfigFile(t *testing.T) {
	_, _, err := execute(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"), "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config initialization failed")
}

func TestVersion_NeedsNoConfig(t *testing.T) {
	out, _, err := execute(t, "--config", "/nonexistent.yaml", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "riskoverlay "+Version)

	out, _, err = execute(t, "version", "--json")
	require.NoError(t, err)
	var info BuildInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, Version, info.Version)
	assert.NotEmpty(t, info.GoVersion)
}

func TestGetCLIContext_Missing(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetContext(context.Background())
	_, err := GetCLIContext(cmd)
	assert.Error(t, err)
}

func TestPrintError(t *testing.T) {
	cmd := NewRootCommand()
	var buf bytes.Buffer
	cmd.SetErr(&buf)

	PrintError(cmd, errors.New(errors.ErrCodeUnknownCategory, "unknown category \"volcano\""))
	assert.Equal(t, "Error: [GEO_005] unknown category \"volcano\"\n", buf.String())

	buf.Reset()
	PrintError(cmd, fmt.Errorf("plain"))
	assert.Equal(t, "Error: plain\n", buf.String())

	buf.Reset()
	PrintError(cmd, nil)
	assert.Empty(t, buf.String())
}

func TestFormatTable(t *testing.T) {
	out := FormatTable([]string{"CATEGORY", "INSIDE"}, [][]string{
		{"Hospitais", "1"},
		{"Aldeias Indígenas", "12"},
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "CATEGORY           INSIDE", lines[0])
	assert.Equal(t, "-----------------  ------", lines[1])
	assert.Equal(t, "Hospitais          1     ", lines[2])
	assert.Equal(t, "Aldeias Indígenas  12    ", lines[3])

	assert.Empty(t, FormatTable(nil, nil))
}
