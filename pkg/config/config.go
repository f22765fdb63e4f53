package config

import (
	"encoding/json"
	"flag"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/freenet-go/nodelog/pkg/rotate"
	"github.com/freenet-go/nodelog/util"
)

// Config holds the node logger's tunable settings.
type Config struct {
	LogDir          string        `yaml:"log_dir" json:"log_dir"`
	BaseName        string        `yaml:"base_name" json:"base_name"`
	Interval        string        `yaml:"interval" json:"interval"`
	BuildNumber     int           `yaml:"build_number" json:"build_number"`
	MaxListCount    int           `yaml:"max_list_count" json:"max_list_count"`
	MaxListBytes    int64         `yaml:"max_list_bytes" json:"max_list_bytes"`
	FlushDelayMS    int           `yaml:"flush_delay_ms" json:"flush_delay_ms"`
	MaxArchiveBytes int64         `yaml:"max_archive_bytes" json:"max_archive_bytes"`
	EnableMirror    bool          `yaml:"enable_mirror" json:"enable_mirror"`
	LogLevel        util.LogLevel `yaml:"log_level" json:"log_level"`
	EnableExporter  bool          `yaml:"enable_exporter" json:"enable_exporter"`
	ExporterPort    int           `yaml:"exporter_port" json:"exporter_port"`
	WatchConfig     bool          `yaml:"watch_config" json:"watch_config"`
}

// FlushDelay converts FlushDelayMS to a time.Duration.
func (cfg *Config) FlushDelay() time.Duration {
	return time.Duration(cfg.FlushDelayMS) * time.Millisecond
}

// LoadConfig builds a Config from CLI flags, an optional YAML/JSON file
// (via -config or CONFIG_PATH), and defaults. In order of increasing
// precedence: defaults, then file, then explicitly passed flags.
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	configPath := flag.String("config", "", "Path to YAML/JSON config file")
	logDirStr := flag.String("log-dir", "node-logs", "Directory rotated log files are written to")
	baseNameStr := flag.String("base-name", "node", "Base filename for rotated logs (empty disables persistence)")
	intervalStr := flag.String("interval", "1HOUR", "Rotation interval, e.g. 5MINUTE, HOUR, 1WEEK")
	buildStr := flag.String("build", "0", "Build number embedded in rotated filenames")
	maxListCountStr := flag.String("max-list-count", "10000", "Maximum buffered records before drop")
	maxListBytesStr := flag.String("max-list-bytes", "33554432", "Maximum buffered bytes before drop")
	flushDelayStr := flag.String("flush-delay-ms", "1000", "Maximum time a record waits before a forced flush")
	maxArchiveBytesStr := flag.String("max-archive-bytes", "1073741824", "Byte quota for rotated archive files")
	enableMirrorStr := flag.String("enable-mirror", "true", "Maintain an uncompressed latest.log mirror")
	logLevelStr := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	exporterStr := flag.String("exporter", "true", "Enable Prometheus exporter")
	exporterPortStr := flag.String("exporter-port", "9100", "Exporter port")
	watchStr := flag.String("watch-config", "false", "Hot-reload tunables when the config file changes")

	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" && *configPath == "" {
		*configPath = envPath
	}

	flag.Parse()

	applyDefaults(cfg, logDirStr, baseNameStr, intervalStr, buildStr, maxListCountStr,
		maxListBytesStr, flushDelayStr, maxArchiveBytesStr, enableMirrorStr,
		logLevelStr, exporterStr, exporterPortStr, watchStr)

	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			return nil, err
		}
		if strings.HasSuffix(*configPath, ".json") {
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		} else {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		}
	}

	applyExplicitFlags(cfg, logDirStr, baseNameStr, intervalStr, buildStr, maxListCountStr,
		maxListBytesStr, flushDelayStr, maxArchiveBytesStr, enableMirrorStr,
		logLevelStr, exporterStr, exporterPortStr, watchStr)

	cfg.Normalize()
	util.SetLevel(cfg.LogLevel)

	return cfg, nil
}

func applyDefaults(cfg *Config, logDirStr, baseNameStr, intervalStr, buildStr, maxListCountStr,
	maxListBytesStr, flushDelayStr, maxArchiveBytesStr, enableMirrorStr,
	logLevelStr, exporterStr, exporterPortStr, watchStr *string) {

	cfg.LogDir = *logDirStr
	cfg.BaseName = *baseNameStr
	cfg.Interval = *intervalStr
	cfg.BuildNumber = util.ParseInt(*buildStr, 0)
	cfg.MaxListCount = util.ParseInt(*maxListCountStr, 10000)
	cfg.MaxListBytes = util.ParseInt64(*maxListBytesStr, 32<<20)
	cfg.FlushDelayMS = util.ParseInt(*flushDelayStr, 1000)
	cfg.MaxArchiveBytes = util.ParseInt64(*maxArchiveBytesStr, 1<<30)
	cfg.EnableMirror = util.ParseBool(*enableMirrorStr, true)
	cfg.LogLevel = parseLogLevel(*logLevelStr)
	cfg.EnableExporter = util.ParseBool(*exporterStr, true)
	cfg.ExporterPort = util.ParseInt(*exporterPortStr, 9100)
	cfg.WatchConfig = util.ParseBool(*watchStr, false)
}

func applyExplicitFlags(cfg *Config, logDirStr, baseNameStr, intervalStr, buildStr, maxListCountStr,
	maxListBytesStr, flushDelayStr, maxArchiveBytesStr, enableMirrorStr,
	logLevelStr, exporterStr, exporterPortStr, watchStr *string) {

	if *logDirStr != "node-logs" {
		cfg.LogDir = *logDirStr
	}
	if *baseNameStr != "node" {
		cfg.BaseName = *baseNameStr
	}
	if *intervalStr != "1HOUR" {
		cfg.Interval = *intervalStr
	}
	if *buildStr != "0" {
		cfg.BuildNumber = util.ParseInt(*buildStr, cfg.BuildNumber)
	}
	if *maxListCountStr != "10000" {
		cfg.MaxListCount = util.ParseInt(*maxListCountStr, cfg.MaxListCount)
	}
	if *maxListBytesStr != "33554432" {
		cfg.MaxListBytes = util.ParseInt64(*maxListBytesStr, cfg.MaxListBytes)
	}
	if *flushDelayStr != "1000" {
		cfg.FlushDelayMS = util.ParseInt(*flushDelayStr, cfg.FlushDelayMS)
	}
	if *maxArchiveBytesStr != "1073741824" {
		cfg.MaxArchiveBytes = util.ParseInt64(*maxArchiveBytesStr, cfg.MaxArchiveBytes)
	}
	if *enableMirrorStr != "true" {
		cfg.EnableMirror = util.ParseBool(*enableMirrorStr, cfg.EnableMirror)
	}
	if *logLevelStr != "info" {
		cfg.LogLevel = parseLogLevel(*logLevelStr)
	}
	if *exporterStr != "true" {
		cfg.EnableExporter = util.ParseBool(*exporterStr, cfg.EnableExporter)
	}
	if *exporterPortStr != "9100" {
		cfg.ExporterPort = util.ParseInt(*exporterPortStr, cfg.ExporterPort)
	}
	if *watchStr != "false" {
		cfg.WatchConfig = util.ParseBool(*watchStr, cfg.WatchConfig)
	}
}

func parseLogLevel(s string) util.LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return util.LogLevelDebug
	case "warn", "warning":
		return util.LogLevelWarn
	case "error":
		return util.LogLevelError
	default:
		return util.LogLevelInfo
	}
}

// Normalize clamps fields to sane floors after flags/file/defaults are all
// applied.
func (cfg *Config) Normalize() {
	if strings.TrimSpace(cfg.LogDir) == "" {
		cfg.LogDir = "node-logs"
	}
	if cfg.MaxListCount <= 0 {
		cfg.MaxListCount = 10000
	}
	if cfg.MaxListBytes <= 0 {
		cfg.MaxListBytes = 32 << 20
	}
	if cfg.FlushDelayMS <= 0 {
		cfg.FlushDelayMS = 1000
	}
	if cfg.MaxArchiveBytes <= 0 {
		cfg.MaxArchiveBytes = 1 << 30
	}
	if cfg.ExporterPort <= 0 {
		cfg.ExporterPort = 9100
	}
	if strings.TrimSpace(cfg.Interval) == "" {
		cfg.Interval = "1HOUR"
	}
}

// Validate checks cfg.Interval against the grammar rotate.NewHook expects,
// surfacing rotate.ErrInvalidInterval early rather than at Hook construction.
func Validate(interval string) error {
	_, err := rotate.ParseInterval(interval)
	return err
}
