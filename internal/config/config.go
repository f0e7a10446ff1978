package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/intersim/intersim/internal/sim"
)

// FileName is the configuration file looked up in the config directory.
const FileName = "intersim.cfg.json"

// DriverConfig controls the real-time tick loop.
type DriverConfig struct {
	TickRate    time.Duration
	MaxTicks    uint64
	RecordEvery uint64
	// ServeEvery is the tick period of lane feed service rounds.
	ServeEvery uint64
	Seed       int64
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds settings for the in-memory SQLite backend.
type SQLiteConfig struct {
	OutputDir    string
	DumpInterval time.Duration
}

// WebSocketConfig holds settings for the streaming backend.
type WebSocketConfig struct {
	URL    string
	Secret string
}

// StorageConfig selects and configures the recording backend.
type StorageConfig struct {
	Type      string
	Memory    MemoryConfig
	SQLite    SQLiteConfig
	WebSocket WebSocketConfig
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// InfluxConfig holds InfluxDB connection settings.
type InfluxConfig struct {
	Enabled   bool
	Host      string
	Port      string
	Protocol  string
	Token     string
	Org       string
	Bucket    string
	BackupDir string
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// GraylogConfig holds the GELF sink settings.
type GraylogConfig struct {
	Enabled bool
	Address string
}

// APIConfig holds the recording upload server settings.
type APIConfig struct {
	ServerURL string
	APIKey    string
	Upload    bool
}

// FeedConfig controls the lane-file arrival feed.
type FeedConfig struct {
	Enabled      bool
	Dir          string
	PollInterval time.Duration
	Generator    string
}

// GeoConfig anchors the intersection center on the globe.
type GeoConfig struct {
	Latitude      float64
	Longitude     float64
	MetersPerUnit float64
}

// MonitorConfig controls periodic lane count reporting.
type MonitorConfig struct {
	Interval time.Duration
}

// SetDefaults registers every default value. Load calls it; tests and
// commands running without a config file call it directly.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	d := sim.DefaultParams()
	viper.SetDefault("sim.width", d.Width)
	viper.SetDefault("sim.height", d.Height)
	viper.SetDefault("sim.laneWidth", d.LaneWidth)
	viper.SetDefault("sim.roadHalfWidth", d.RoadHalfWidth)
	viper.SetDefault("sim.speed", d.Speed)
	viper.SetDefault("sim.followDistance", d.FollowDistance)
	viper.SetDefault("sim.frontCone", d.FrontCone)
	viper.SetDefault("sim.stopDistance", d.StopDistance)
	viper.SetDefault("sim.turnBand", d.TurnBand)
	viper.SetDefault("sim.turnStep", d.TurnStep)
	viper.SetDefault("sim.cardinalTolerance", d.CardinalTolerance)
	viper.SetDefault("sim.minTurnSweep", d.MinTurnSweep)
	viper.SetDefault("sim.spawnMargin", d.SpawnMargin)
	viper.SetDefault("sim.reapMargin", d.ReapMargin)
	viper.SetDefault("sim.spawnInterval", d.SpawnInterval)
	viper.SetDefault("sim.greenTicks", d.GreenTicks)
	viper.SetDefault("sim.yellowTicks", d.YellowTicks)
	viper.SetDefault("sim.turnPolicy", d.TurnPolicy.String())

	viper.SetDefault("driver.tickRate", "16ms")
	viper.SetDefault("driver.maxTicks", 0)
	viper.SetDefault("driver.recordEvery", 10)
	viper.SetDefault("driver.serveEvery", 30)
	viper.SetDefault("driver.seed", 1)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./recordings")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.outputDir", "./recordings")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.websocket.url", "ws://localhost:5000/api/v1/stream")
	viper.SetDefault("storage.websocket.secret", "")

	viper.SetDefault("api.serverUrl", "http://localhost:5000/api")
	viper.SetDefault("api.apiKey", "")
	viper.SetDefault("api.upload", false)

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "intersim")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "intersim")
	viper.SetDefault("influx.bucket", "intersection")
	viper.SetDefault("influx.backupDir", "./logs")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "intersim")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("feed.enabled", false)
	viper.SetDefault("feed.dir", "./data")
	viper.SetDefault("feed.pollInterval", "1s")
	viper.SetDefault("feed.generator", "random")

	viper.SetDefault("geo.latitude", 27.7172)
	viper.SetDefault("geo.longitude", 85.3240)
	viper.SetDefault("geo.metersPerUnit", 0.1)

	viper.SetDefault("monitor.interval", "2s")
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// BindFlags overrides config keys with command line flags of the same
// meaning. Flags missing from fs are skipped.
func BindFlags(fs *pflag.FlagSet) error {
	bindings := map[string]string{
		"log-level":   "logLevel",
		"seed":        "driver.seed",
		"ticks":       "driver.maxTicks",
		"tick-rate":   "driver.tickRate",
		"storage":     "storage.type",
		"turn-policy": "sim.turnPolicy",
		"feed":        "feed.enabled",
	}
	for flag, key := range bindings {
		f := fs.Lookup(flag)
		if f == nil {
			continue
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding --%s: %w", flag, err)
		}
	}
	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetSimParams returns the engine parameters. An unknown turn policy is an
// error; numeric ranges are checked by sim.Params.Validate.
func GetSimParams() (sim.Params, error) {
	policy, err := sim.ParseTurnPolicy(viper.GetString("sim.turnPolicy"))
	if err != nil {
		return sim.Params{}, err
	}
	return sim.Params{
		Width:             viper.GetFloat64("sim.width"),
		Height:            viper.GetFloat64("sim.height"),
		LaneWidth:         viper.GetFloat64("sim.laneWidth"),
		RoadHalfWidth:     viper.GetFloat64("sim.roadHalfWidth"),
		Speed:             viper.GetFloat64("sim.speed"),
		FollowDistance:    viper.GetFloat64("sim.followDistance"),
		FrontCone:         viper.GetFloat64("sim.frontCone"),
		StopDistance:      viper.GetFloat64("sim.stopDistance"),
		TurnBand:          viper.GetFloat64("sim.turnBand"),
		TurnStep:          viper.GetFloat64("sim.turnStep"),
		CardinalTolerance: viper.GetFloat64("sim.cardinalTolerance"),
		MinTurnSweep:      viper.GetFloat64("sim.minTurnSweep"),
		SpawnMargin:       viper.GetFloat64("sim.spawnMargin"),
		ReapMargin:        viper.GetFloat64("sim.reapMargin"),
		SpawnInterval:     viper.GetUint64("sim.spawnInterval"),
		GreenTicks:        viper.GetUint64("sim.greenTicks"),
		YellowTicks:       viper.GetUint64("sim.yellowTicks"),
		TurnPolicy:        policy,
	}, nil
}

// GetDriverConfig returns the tick loop settings.
func GetDriverConfig() DriverConfig {
	return DriverConfig{
		TickRate:    viper.GetDuration("driver.tickRate"),
		MaxTicks:    viper.GetUint64("driver.maxTicks"),
		RecordEvery: viper.GetUint64("driver.recordEvery"),
		ServeEvery:  viper.GetUint64("driver.serveEvery"),
		Seed:        viper.GetInt64("driver.seed"),
	}
}

// GetStorageConfig returns the storage backend settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			OutputDir:    viper.GetString("storage.sqlite.outputDir"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
		WebSocket: WebSocketConfig{
			URL:    viper.GetString("storage.websocket.url"),
			Secret: viper.GetString("storage.websocket.secret"),
		},
	}
}

// GetDBConfig returns the PostgreSQL connection settings.
func GetDBConfig() DBConfig {
	return DBConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
	}
}

// GetInfluxConfig returns the InfluxDB settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:   viper.GetBool("influx.enabled"),
		Host:      viper.GetString("influx.host"),
		Port:      viper.GetString("influx.port"),
		Protocol:  viper.GetString("influx.protocol"),
		Token:     viper.GetString("influx.token"),
		Org:       viper.GetString("influx.org"),
		Bucket:    viper.GetString("influx.bucket"),
		BackupDir: viper.GetString("influx.backupDir"),
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetGraylogConfig returns the GELF sink settings.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetAPIConfig returns the upload server settings.
func GetAPIConfig() APIConfig {
	return APIConfig{
		ServerURL: viper.GetString("api.serverUrl"),
		APIKey:    viper.GetString("api.apiKey"),
		Upload:    viper.GetBool("api.upload"),
	}
}

// GetFeedConfig returns the lane-file feed settings.
func GetFeedConfig() FeedConfig {
	return FeedConfig{
		Enabled:      viper.GetBool("feed.enabled"),
		Dir:          viper.GetString("feed.dir"),
		PollInterval: viper.GetDuration("feed.pollInterval"),
		Generator:    viper.GetString("feed.generator"),
	}
}

// GetGeoConfig returns the geographic anchor.
func GetGeoConfig() GeoConfig {
	return GeoConfig{
		Latitude:      viper.GetFloat64("geo.latitude"),
		Longitude:     viper.GetFloat64("geo.longitude"),
		MetersPerUnit: viper.GetFloat64("geo.metersPerUnit"),
	}
}

// GetMonitorConfig returns the lane count reporting settings.
func GetMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Interval: viper.GetDuration("monitor.interval"),
	}
}
