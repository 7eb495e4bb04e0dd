// Package config resolves docloc settings from command-line flags, the
// environment, a .env file, the .docloc.yaml config file and the stored
// credentials, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/minios-linux/docloc/langmeta"
	"github.com/minios-linux/docloc/settings"
	"github.com/minios-linux/docloc/translate"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the working directory and the
// home directory.
const FileName = ".docloc.yaml"

// EnvPrefix prefixes every environment variable docloc reads.
const EnvPrefix = "DOCLOC"

// Config is the resolved configuration of a translation run.
type Config struct {
	APIKey     string
	SourceLang string
	TargetLang string
	BaseURL    string
	Timeout    time.Duration
	Proxy      string

	// ConfigFile is the config file that was read, if any.
	ConfigFile string
	// KeySource describes where APIKey came from, for display.
	KeySource string
}

// Options controls where Load looks for settings.
type Options struct {
	// ConfigFile is an explicit config file path (--config). It must exist.
	ConfigFile string
	// Dir is searched for .docloc.yaml and .env (default ".").
	Dir string
	// Flags are bound by name: api-key, from, to, base-url, timeout, proxy.
	// Missing flags are ignored.
	Flags *pflag.FlagSet
}

// setting ties a config key to its flag and environment variables.
type setting struct {
	key  string
	flag string
	env  []string
}

var settingsTable = []setting{
	{key: "api_key", flag: "api-key", env: []string{EnvPrefix + "_API_KEY", "DEEPL_API_KEY"}},
	{key: "source_lang", flag: "from", env: []string{EnvPrefix + "_SOURCE_LANG"}},
	{key: "target_lang", flag: "to", env: []string{EnvPrefix + "_TARGET_LANG"}},
	{key: "base_url", flag: "base-url", env: []string{EnvPrefix + "_BASE_URL"}},
	{key: "timeout", flag: "timeout", env: []string{EnvPrefix + "_TIMEOUT"}},
	{key: "proxy", flag: "proxy", env: []string{EnvPrefix + "_PROXY"}},
}

// Load resolves the configuration. Missing files are not an error; an
// unreadable or malformed one is.
func Load(opts Options) (*Config, error) {
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}

	v := viper.New()
	v.SetDefault("timeout", translate.DefaultTimeout)

	for _, s := range settingsTable {
		args := append([]string{s.key}, s.env...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("binding environment for %s: %w", s.key, err)
		}
		if opts.Flags == nil {
			continue
		}
		if f := opts.Flags.Lookup(s.flag); f != nil {
			if err := v.BindPFlag(s.key, f); err != nil {
				return nil, fmt.Errorf("binding --%s: %w", s.flag, err)
			}
		}
	}

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", opts.ConfigFile, err)
		}
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	dotenv, err := readDotEnv(filepath.Join(dir, ".env"))
	if err != nil {
		return nil, err
	}
	sources := make(map[string]string, len(settingsTable))
	for _, s := range settingsTable {
		sources[s.key] = overlay(v, s, opts.Flags, dotenv)
	}

	cfg := &Config{
		APIKey:     strings.TrimSpace(v.GetString("api_key")),
		SourceLang: v.GetString("source_lang"),
		TargetLang: v.GetString("target_lang"),
		BaseURL:    v.GetString("base_url"),
		Timeout:    v.GetDuration("timeout"),
		Proxy:      v.GetString("proxy"),
		ConfigFile: v.ConfigFileUsed(),
		KeySource:  sources["api_key"],
	}

	// The credential store is the last resort.
	if cfg.APIKey == "" {
		if key := settings.GetAPIKey(settings.ServiceDeepL); key != "" {
			cfg.APIKey = key
			cfg.KeySource = "credential store (" + settings.FilePath() + ")"
		}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = settings.GetBaseURL(settings.ServiceDeepL)
	}
	return cfg, nil
}

// readDotEnv reads a .env file without touching the process environment.
func readDotEnv(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return values, nil
}

// overlay applies the .env value of s when neither its flag nor its
// environment variables are set, so .env ranks between the environment and
// the config file. It returns a description of the winning source.
func overlay(v *viper.Viper, s setting, flags *pflag.FlagSet, dotenv map[string]string) string {
	if flags != nil {
		if f := flags.Lookup(s.flag); f != nil && f.Changed {
			return "--" + s.flag + " flag"
		}
	}
	for _, name := range s.env {
		if os.Getenv(name) != "" {
			return name + " environment variable"
		}
	}
	for _, name := range s.env {
		if val, ok := dotenv[name]; ok {
			v.Set(s.key, val)
			return ".env (" + name + ")"
		}
	}
	if v.InConfig(s.key) {
		return "config file (" + v.ConfigFileUsed() + ")"
	}
	return ""
}

// ValidateLanguages checks the language codes and rewrites them to the form
// the DeepL API expects.
func (c *Config) ValidateLanguages() error {
	target, err := langmeta.TargetCode(c.TargetLang)
	if err != nil {
		return fmt.Errorf("target language: %w", err)
	}
	source, err := langmeta.SourceCode(c.SourceLang)
	if err != nil {
		return fmt.Errorf("source language: %w", err)
	}
	c.TargetLang, c.SourceLang = target, source
	return nil
}

// Validate checks everything a translation run needs and normalises the
// language codes.
func (c *Config) Validate() error {
	if err := c.ValidateLanguages(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return fmt.Errorf("no DeepL API key: pass --api-key, set DEEPL_API_KEY or run 'docloc auth login'")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.BaseURL != "" {
		if err := checkURL(c.BaseURL); err != nil {
			return fmt.Errorf("base URL: %w", err)
		}
	}
	if c.Proxy != "" {
		if err := checkURL(c.Proxy); err != nil {
			return fmt.Errorf("proxy: %w", err)
		}
	}
	return nil
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("%q is not an http(s) URL", raw)
	}
	return nil
}

// ClientOptions returns the translate client options for c.
func (c *Config) ClientOptions() []translate.Option {
	opts := []translate.Option{translate.WithTimeout(c.Timeout)}
	if c.BaseURL != "" {
		opts = append(opts, translate.WithBaseURL(c.BaseURL))
	}
	if c.Proxy != "" {
		opts = append(opts, translate.WithProxy(c.Proxy))
	}
	return opts
}
