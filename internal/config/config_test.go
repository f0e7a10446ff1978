package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intersim/intersim/internal/sim"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0644))
	return dir
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"logLevel": "debug",
		"db": { "host": "10.0.0.1", "port": "5433" }
	}`)

	require.NoError(t, Load(dir))

	assert.Equal(t, "debug", GetString("logLevel"))
	assert.Equal(t, "10.0.0.1", GetDBConfig().Host)
	assert.Equal(t, "5433", GetDBConfig().Port)
	assert.Equal(t, "intersim", GetDBConfig().Database)
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	assert.Equal(t, "info", GetString("logLevel"))
	assert.Equal(t, "./logs", GetString("logsDir"))
	assert.Equal(t, "http://localhost:5000/api", GetAPIConfig().ServerURL)
	assert.False(t, GetAPIConfig().Upload)
	assert.False(t, GetGraylogConfig().Enabled)
	assert.Equal(t, "localhost:12201", GetGraylogConfig().Address)
	assert.False(t, GetInfluxConfig().Enabled)
	assert.Equal(t, "intersection", GetInfluxConfig().Bucket)
	assert.Equal(t, 2*time.Second, GetMonitorConfig().Interval)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestGetters(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	viper.Set("testInt", 42)
	viper.Set("testBool", true)

	assert.Equal(t, "testValue", GetString("testKey"))
	assert.Equal(t, 42, GetInt("testInt"))
	assert.True(t, GetBool("testBool"))
}

func TestGetSimParams_DefaultsMatchEngine(t *testing.T) {
	t.Cleanup(viper.Reset)
	SetDefaults()

	p, err := GetSimParams()
	require.NoError(t, err)
	assert.Equal(t, sim.DefaultParams(), p)
}

func TestGetSimParams_Override(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"sim": { "greenTicks": 120, "speed": 3, "turnPolicy": "yield" }
	}`)))

	p, err := GetSimParams()
	require.NoError(t, err)
	assert.Equal(t, uint64(120), p.GreenTicks)
	assert.Equal(t, 3.0, p.Speed)
	assert.Equal(t, sim.TurnsYield, p.TurnPolicy)
	assert.Equal(t, 30.0, p.LaneWidth)
}

func TestGetSimParams_UnknownPolicy(t *testing.T) {
	t.Cleanup(viper.Reset)
	SetDefaults()
	viper.Set("sim.turnPolicy", "swerve")

	_, err := GetSimParams()
	assert.Error(t, err)
}

func TestGetDriverConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{ "driver": { "tickRate": "5ms", "maxTicks": 900 } }`)))

	dc := GetDriverConfig()
	assert.Equal(t, 5*time.Millisecond, dc.TickRate)
	assert.Equal(t, uint64(900), dc.MaxTicks)
	assert.Equal(t, uint64(10), dc.RecordEvery)
	assert.Equal(t, uint64(30), dc.ServeEvery)
	assert.Equal(t, int64(1), dc.Seed)
}

func TestGetStorageConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetStorageConfig()
	assert.Equal(t, "memory", cfg.Type)
	assert.Equal(t, "./recordings", cfg.Memory.OutputDir)
	assert.True(t, cfg.Memory.CompressOutput)
	assert.Equal(t, 3*time.Minute, cfg.SQLite.DumpInterval)
	assert.Equal(t, "ws://localhost:5000/api/v1/stream", cfg.WebSocket.URL)
}

func TestGetStorageConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"storage": {
			"type": "sqlite",
			"memory": { "outputDir": "/tmp/out", "compressOutput": false },
			"sqlite": { "dumpInterval": "10m" }
		}
	}`)))

	sc := GetStorageConfig()
	assert.Equal(t, "sqlite", sc.Type)
	assert.Equal(t, "/tmp/out", sc.Memory.OutputDir)
	assert.False(t, sc.Memory.CompressOutput)
	assert.Equal(t, 10*time.Minute, sc.SQLite.DumpInterval)
}

func TestGetOTelConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"otel": {
			"enabled": true,
			"serviceName": "junction-7",
			"batchTimeout": "30s",
			"endpoint": "localhost:4318",
			"insecure": false
		}
	}`)))

	oc := GetOTelConfig()
	assert.True(t, oc.Enabled)
	assert.Equal(t, "junction-7", oc.ServiceName)
	assert.Equal(t, 30*time.Second, oc.BatchTimeout)
	assert.Equal(t, "localhost:4318", oc.Endpoint)
	assert.False(t, oc.Insecure)
}

func TestGetFeedAndGeoConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"feed": { "enabled": true, "dir": "/srv/lanes", "generator": "burst" },
		"geo": { "latitude": 52.37, "longitude": 4.89 }
	}`)))

	fc := GetFeedConfig()
	assert.True(t, fc.Enabled)
	assert.Equal(t, "/srv/lanes", fc.Dir)
	assert.Equal(t, "burst", fc.Generator)
	assert.Equal(t, time.Second, fc.PollInterval)

	gc := GetGeoConfig()
	assert.Equal(t, 52.37, gc.Latitude)
	assert.Equal(t, 4.89, gc.Longitude)
	assert.Equal(t, 0.1, gc.MetersPerUnit)
}

func TestBindFlags(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{ "driver": { "seed": 5 } }`)))

	fs := pflag.NewFlagSet("intersim", pflag.ContinueOnError)
	fs.Int64("seed", 0, "")
	fs.String("turn-policy", "", "")
	require.NoError(t, BindFlags(fs))

	// unset flags leave file values alone
	assert.Equal(t, int64(5), GetDriverConfig().Seed)

	require.NoError(t, fs.Parse([]string{"--seed", "77", "--turn-policy", "yield"}))
	assert.Equal(t, int64(77), GetDriverConfig().Seed)

	p, err := GetSimParams()
	require.NoError(t, err)
	assert.Equal(t, sim.TurnsYield, p.TurnPolicy)
}
