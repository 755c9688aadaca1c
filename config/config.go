package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"tts-relay/models"
)

const envPrefix = "TTS_RELAY"

// Defaults mirror the Aliyun NLS gateway the browser editor talks to.
const (
	DefaultPort            = 3000
	DefaultUpstreamScheme  = "https"
	DefaultUpstreamHost    = "nls-gateway-cn-shanghai.aliyuncs.com"
	DefaultUpstreamPath    = "/stream/v1/tts"
	DefaultUserAgent       = "Mozilla/5.0"
	DefaultTimeout         = 30 * time.Second
	DefaultMaxBodyBytes    = 32 << 20
	DefaultShutdownTimeout = 5 * time.Second
)

type Config struct {
	Port            int            `mapstructure:"port"`
	Listen          string         `mapstructure:"listen"`
	Upstream        UpstreamConfig `mapstructure:"upstream"`
	Log             LogConfig      `mapstructure:"log"`
	ShutdownTimeout time.Duration  `mapstructure:"shutdown_timeout"`
	Watch           bool           `mapstructure:"watch"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

type UpstreamConfig struct {
	Scheme       string        `mapstructure:"scheme"`
	Host         string        `mapstructure:"host"`
	Path         string        `mapstructure:"path"`
	UserAgent    string        `mapstructure:"user_agent"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Addr is the listen address handed to http.Server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Listen, c.Port)
}

// Target converts the upstream section into the relay's target.
func (c *Config) Target() models.Upstream {
	return models.Upstream{
		Scheme:       c.Upstream.Scheme,
		Host:         c.Upstream.Host,
		Path:         c.Upstream.Path,
		UserAgent:    c.Upstream.UserAgent,
		Timeout:      c.Upstream.Timeout,
		MaxBodyBytes: c.Upstream.MaxBodyBytes,
	}
}

// Validate rejects configurations the relay cannot serve with.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.Upstream.Scheme != "http" && c.Upstream.Scheme != "https" {
		errs = append(errs, fmt.Errorf("upstream.scheme must be http or https, got %q", c.Upstream.Scheme))
	}
	if strings.TrimSpace(c.Upstream.Host) == "" {
		errs = append(errs, errors.New("upstream.host is required"))
	}
	if !strings.HasPrefix(c.Upstream.Path, "/") {
		errs = append(errs, fmt.Errorf("upstream.path must start with /, got %q", c.Upstream.Path))
	}
	if c.Upstream.Timeout <= 0 {
		errs = append(errs, errors.New("upstream.timeout must be positive"))
	}
	if c.Upstream.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("upstream.max_body_bytes must be positive"))
	}
	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", DefaultPort)
	v.SetDefault("listen", "")
	v.SetDefault("upstream.scheme", DefaultUpstreamScheme)
	v.SetDefault("upstream.host", DefaultUpstreamHost)
	v.SetDefault("upstream.path", DefaultUpstreamPath)
	v.SetDefault("upstream.user_agent", DefaultUserAgent)
	v.SetDefault("upstream.timeout", DefaultTimeout)
	v.SetDefault("upstream.max_body_bytes", DefaultMaxBodyBytes)
	v.SetDefault("log.level", "info")
	v.SetDefault("shutdown_timeout", DefaultShutdownTimeout)
	v.SetDefault("watch", false)
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("tts-relay", pflag.ContinueOnError)
	fs.String("config", "", "path to a YAML config file")
	fs.Int("port", DefaultPort, "port to listen on")
	fs.String("listen", "", "interface to bind (empty for all)")
	fs.String("upstream-host", DefaultUpstreamHost, "TTS API host")
	fs.Duration("upstream-timeout", DefaultTimeout, "timeout for each upstream call")
	fs.Int64("max-body-bytes", DefaultMaxBodyBytes, "largest upstream body relayed")
	fs.String("log-level", "info", "debug, info, warn or error")
	fs.Bool("watch", false, "reload upstream settings when the config file changes")
	return fs
}

// Load builds the configuration from defaults, an optional config file,
// .env, TTS_RELAY_* environment variables and finally args.
func Load(args []string) (*Config, error) {
	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// A missing .env is the normal case.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindings := map[string]string{
		"port":                    "port",
		"listen":                  "listen",
		"upstream.host":           "upstream-host",
		"upstream.timeout":        "upstream-timeout",
		"upstream.max_body_bytes": "max-body-bytes",
		"log.level":               "log-level",
		"watch":                   "watch",
	}
	for key, name := range bindings {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	file, _ := fs.GetString("config")
	if file == "" {
		file = os.Getenv(envPrefix + "_CONFIG")
	}
	if err := readConfigFile(v, file); err != nil {
		return nil, err
	}

	return decode(v)
}

// LoadFile re-reads a single config file on top of the defaults. Used on
// hot reload, where flags and environment from startup are not re-applied.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if err := readConfigFile(v, path); err != nil {
		return nil, err
	}
	return decode(v)
}

func readConfigFile(v *viper.Viper, file string) error {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.SetConfigName("config")
		v.SetConfigType("yml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func decode(v *viper.Viper) (*Config, error) {
	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	c.File = v.ConfigFileUsed()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}
