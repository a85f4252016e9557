// Package config implements the ambient configuration layer: viper-backed
// settings with pflag command-line overrides and fsnotify hot-reload of
// the logging level, the one knob that is changed without a restart,
// the way the teacher's node config
// wires spf13/viper + spf13/pflag + fsnotify.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/execore/bootloader/bootloader"
	"github.com/execore/bootloader/iostate"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config is the full set of externally tunable knobs for an execore run.
type Config struct {
	ChainID            uint64 `mapstructure:"chain_id"`
	BlockGasLimit      uint64 `mapstructure:"block_gas_limit"`
	ErgsBudget         uint64 `mapstructure:"ergs_budget"`
	PreimageCacheBytes int    `mapstructure:"preimage_cache_bytes"`
	ColdReadErgs       uint64 `mapstructure:"cold_read_ergs"`
	GasPerPubdata      uint64 `mapstructure:"gas_per_pubdata"`
	LogLevel           string `mapstructure:"log_level"`
	LogFile            string `mapstructure:"log_file"`
	StatusListenAddr   string `mapstructure:"status_listen_addr"`
	OracleTapePath     string `mapstructure:"oracle_tape_path"`
}

// logWriter returns the destination for structured logs: stderr if no
// LogFile is configured, otherwise a rotated file via lumberjack.
func (c Config) logWriter() io.Writer {
	if c.LogFile == "" {
		return os.Stderr
	}
	return &lumberjack.Logger{
		Filename:   c.LogFile,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     28,
		Compress:   true,
	}
}

// Driver projects Config onto the bootloader's own Config type.
func (c Config) Driver() bootloader.Config {
	return bootloader.Config{
		ChainID:            c.ChainID,
		BlockGasLimit:      c.BlockGasLimit,
		ErgsBudget:         c.ErgsBudget,
		PreimageCacheBytes: c.PreimageCacheBytes,
		Schedule: iostate.GasSchedule{
			ColdReadErgs:  c.ColdReadErgs,
			GasPerPubdata: c.GasPerPubdata,
		},
	}
}

func defaults(v *viper.Viper) {
	v.SetDefault("chain_id", 9)
	v.SetDefault("block_gas_limit", 30_000_000)
	v.SetDefault("ergs_budget", 30_000_000*256)
	v.SetDefault("preimage_cache_bytes", 64<<20)
	v.SetDefault("cold_read_ergs", 2100)
	v.SetDefault("gas_per_pubdata", 20)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("status_listen_addr", "127.0.0.1:8645")
}

// Flags registers the pflag overrides for every Config field onto fs, for
// a cmd/execore-* binary to bind before calling Load.
func Flags(fs *pflag.FlagSet) {
	fs.Uint64("chain-id", 9, "chain id transactions must match")
	fs.Uint64("block-gas-limit", 30_000_000, "maximum gas_limit sum per block")
	fs.Uint64("ergs-budget", 30_000_000*256, "ergs budget per block")
	fs.Int("preimage-cache-bytes", 64<<20, "preimage hot-cache size in bytes")
	fs.Uint64("cold-read-ergs", 2100, "ergs charged for a cold storage read")
	fs.Uint64("gas-per-pubdata", 20, "gas charged per pubdata byte")
	fs.String("log-level", "info", "log verbosity")
	fs.String("log-file", "", "rotate logs into this file instead of stderr")
	fs.String("status-listen-addr", "127.0.0.1:8645", "status RPC listen address")
	fs.String("oracle-tape-path", "", "path to a serialized oracle witness tape (proving mode)")
}

// Load reads configFile (if non-empty), environment variables prefixed
// EXECORE_, and fs overrides, in that increasing order of precedence.
func Load(configFile string, fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	defaults(v)
	v.SetEnvPrefix("execore")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", configFile, err)
		}
	}
	if fs != nil {
		// Flags are named with dashes, config keys with underscores: bind
		// each flag under its config key so it overrides the same setting.
		var bindErr error
		fs.VisitAll(func(f *pflag.Flag) {
			if err := v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return Config{}, fmt.Errorf("config: binding flags: %w", bindErr)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}

func levelFromString(s string) (log.Level, bool) {
	switch strings.ToLower(s) {
	case "trace":
		return log.LevelTrace, true
	case "debug":
		return log.LevelDebug, true
	case "info":
		return log.LevelInfo, true
	case "warn":
		return log.LevelWarn, true
	case "error":
		return log.LevelError, true
	case "crit":
		return log.LevelCrit, true
	default:
		return 0, false
	}
}

// ApplyLogging installs the default logger for the process according to
// cfg.LogLevel and cfg.LogFile. Call once at startup, before WatchLogLevel.
func ApplyLogging(cfg Config) error {
	lvl, ok := levelFromString(cfg.LogLevel)
	if !ok {
		return fmt.Errorf("config: invalid log_level %q", cfg.LogLevel)
	}
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(cfg.logWriter(), lvl, cfg.LogFile == "")))
	return nil
}

// WatchLogLevel hot-reloads the log level from configFile using fsnotify,
// the one knob safe to change without restarting a running node.
func WatchLogLevel(configFile string) error {
	if configFile == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: fsnotify: %w", err)
	}
	if err := watcher.Add(configFile); err != nil {
		watcher.Close()
		return fmt.Errorf("config: watching %s: %w", configFile, err)
	}
	go func() {
		defer watcher.Close()
		for event := range watcher.Events {
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(configFile, nil)
			if err != nil {
				log.Warn("config: hot-reload failed", "err", err)
				continue
			}
			lvl, ok := levelFromString(cfg.LogLevel)
			if !ok {
				log.Warn("config: invalid log_level on reload", "value", cfg.LogLevel)
				continue
			}
			log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(cfg.logWriter(), lvl, cfg.LogFile == "")))
			log.Info("config: log level hot-reloaded", "level", cfg.LogLevel)
		}
	}()
	return nil
}
