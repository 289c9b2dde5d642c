package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	ConfigBaseName = "silaevent"
	ConfigType     = "yaml"
	EnvPrefix      = "SILAEVENT"

	FlagHome      = "home"
	FlagEndpoint  = "endpoint"
	FlagTimeout   = "timeout"
	FlagDiscover  = "discover"
	FlagListen    = "listen"
	FlagPath      = "path"
	FlagAdvertise = "advertise"
	FlagLogLevel  = "log.level"
	FlagLogFormat = "log.format"
)

var configFlags = []string{
	FlagEndpoint,
	FlagTimeout,
	FlagDiscover,
	FlagListen,
	FlagPath,
	FlagAdvertise,
	FlagLogLevel,
	FlagLogFormat,
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// Config holds everything the silaevent command needs. The library packages
// take these values as constructor arguments and never read configuration
// themselves.
type Config struct {
	Endpoint  string        `mapstructure:"endpoint" yaml:"endpoint"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Discover  bool          `mapstructure:"discover" yaml:"discover"`
	Listen    string        `mapstructure:"listen" yaml:"listen"`
	Path      string        `mapstructure:"path" yaml:"path"`
	Advertise bool          `mapstructure:"advertise" yaml:"advertise"`
	Log       LogConfig     `mapstructure:"log" yaml:"log"`
}

var DefaultConfig = Config{
	Endpoint: "http://localhost:7071/ihc",
	Timeout:  5 * time.Second,
	Listen:   "127.0.0.1:7071",
	Path:     "/ihc",
	Log: LogConfig{
		Level:  "info",
		Format: "text",
	},
}

// AddFlags registers the configuration flags on cmd as persistent flags.
func AddFlags(cmd *cobra.Command) {
	def := DefaultConfig
	flags := cmd.PersistentFlags()
	flags.String(FlagHome, "", "directory containing "+ConfigBaseName+"."+ConfigType)
	flags.String(FlagEndpoint, def.Endpoint, "event receiver endpoint URL")
	flags.Duration(FlagTimeout, def.Timeout, "request timeout")
	flags.Bool(FlagDiscover, def.Discover, "discover the event receiver endpoint over mDNS")
	flags.String(FlagListen, def.Listen, "listen address of the local event receiver")
	flags.String(FlagPath, def.Path, "SOAP path of the local event receiver")
	flags.Bool(FlagAdvertise, def.Advertise, "advertise the local event receiver over mDNS")
	flags.String(FlagLogLevel, def.Log.Level, "log level (debug, info, warn, error)")
	flags.String(FlagLogFormat, def.Log.Format, "log format (text, json)")
}

// Load resolves the configuration in order of precedence:
// defaults < YAML file in --home (or the working directory) < SILAEVENT_* env < flags.
func Load(cmd *cobra.Command) (Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig)

	v.SetConfigName(ConfigBaseName)
	v.SetConfigType(ConfigType)
	home, _ := cmd.Flags().GetString(FlagHome)
	if home != "" {
		v.AddConfigPath(home)
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return DefaultConfig, fmt.Errorf("error reading YAML configuration: %w", err)
		}
	} else {
		slog.Debug("Using config file", "path", v.ConfigFileUsed())
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, name := range configFlags {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(name, f); err != nil {
			return DefaultConfig, fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return DefaultConfig, fmt.Errorf("unable to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault(FlagEndpoint, cfg.Endpoint)
	v.SetDefault(FlagTimeout, cfg.Timeout)
	v.SetDefault(FlagDiscover, cfg.Discover)
	v.SetDefault(FlagListen, cfg.Listen)
	v.SetDefault(FlagPath, cfg.Path)
	v.SetDefault(FlagAdvertise, cfg.Advertise)
	v.SetDefault(FlagLogLevel, cfg.Log.Level)
	v.SetDefault(FlagLogFormat, cfg.Log.Format)
}

func (c Config) Validate() error {
	if !c.Discover {
		u, err := url.Parse(c.Endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid endpoint %q: must be an absolute URL", c.Endpoint)
		}
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("invalid log format %q", c.Log.Format)
	}
	return nil
}

func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", l.Level, err)
	}
	return level, nil
}

// Logger builds the process logger. Output goes to stderr so stdout stays
// free for command results and the MCP stdio stream.
func (l LogConfig) Logger() *slog.Logger {
	level, err := l.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
