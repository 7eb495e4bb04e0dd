package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/minios-linux/docloc/settings"
	"github.com/minios-linux/docloc/translate"
	"github.com/spf13/pflag"
)

// isolate points every lookup location at empty temp directories.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	for _, s := range settingsTable {
		for _, name := range s.env {
			t.Setenv(name, "")
		}
	}
	return t.TempDir()
}

func newFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("api-key", "", "")
	fs.String("from", "", "")
	fs.String("to", "", "")
	fs.String("base-url", "", "")
	fs.Duration("timeout", 0, "")
	fs.String("proxy", "", "")
	return fs
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := isolate(t)
	cfg, err := Load(Options{Dir: dir})
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.APIKey != "" || cfg.KeySource != "" {
		t.Fatalf("unexpected key %q from %q", cfg.APIKey, cfg.KeySource)
	}
	if cfg.Timeout != translate.DefaultTimeout {
		t.Fatalf("Timeout = %v, want %v", cfg.Timeout, translate.DefaultTimeout)
	}
	if cfg.ConfigFile != "" {
		t.Fatalf("ConfigFile = %q, want none", cfg.ConfigFile)
	}
}

func TestLoadPrecedence(t *testing.T) {
	t.Run("config file", func(t *testing.T) {
		dir := isolate(t)
		writeFile(t, filepath.Join(dir, FileName), "api_key: from-file\ntarget_lang: de\ntimeout: 45s\n")
		cfg, err := Load(Options{Dir: dir})
		if err != nil {
			t.Fatalf("Load error: %v", err)
		}
		if cfg.APIKey != "from-file" || cfg.TargetLang != "de" || cfg.Timeout != 45*time.Second {
			t.Fatalf("cfg = %+v", cfg)
		}
		if !strings.HasPrefix(cfg.KeySource, "config file") {
			t.Fatalf("KeySource = %q", cfg.KeySource)
		}
	})

	t.Run(".env beats config file", func(t *testing.T) {
		dir := isolate(t)
		writeFile(t, filepath.Join(dir, FileName), "api_key: from-file\n")
		writeFile(t, filepath.Join(dir, ".env"), "DEEPL_API_KEY=from-dotenv\n")
		cfg, err := Load(Options{Dir: dir})
		if err != nil {
			t.Fatalf("Load error: %v", err)
		}
		if cfg.APIKey != "from-dotenv" {
			t.Fatalf("APIKey = %q, want from-dotenv", cfg.APIKey)
		}
		if os.Getenv("DEEPL_API_KEY") != "" {
			t.Fatal(".env must not leak into the process environment")
		}
	})

	t.Run("environment beats .env", func(t *testing.T) {
		dir := isolate(t)
		writeFile(t, filepath.Join(dir, ".env"), "DEEPL_API_KEY=from-dotenv\n")
		t.Setenv("DOCLOC_API_KEY", "from-env")
		cfg, err := Load(Options{Dir: dir})
		if err != nil {
			t.Fatalf("Load error: %v", err)
		}
		if cfg.APIKey != "from-env" || cfg.KeySource != "DOCLOC_API_KEY environment variable" {
			t.Fatalf("APIKey = %q from %q", cfg.APIKey, cfg.KeySource)
		}
	})

	t.Run("flag beats environment", func(t *testing.T) {
		dir := isolate(t)
		t.Setenv("DEEPL_API_KEY", "from-env")
		t.Setenv("DOCLOC_TARGET_LANG", "fr")
		flags := newFlags()
		if err := flags.Parse([]string{"--api-key", "from-flag", "--timeout", "5s"}); err != nil {
			t.Fatal(err)
		}
		cfg, err := Load(Options{Dir: dir, Flags: flags})
		if err != nil {
			t.Fatalf("Load error: %v", err)
		}
		if cfg.APIKey != "from-flag" || cfg.KeySource != "--api-key flag" {
			t.Fatalf("APIKey = %q from %q", cfg.APIKey, cfg.KeySource)
		}
		if cfg.TargetLang != "fr" {
			t.Fatalf("TargetLang = %q, want fr from the environment", cfg.TargetLang)
		}
		if cfg.Timeout != 5*time.Second {
			t.Fatalf("Timeout = %v", cfg.Timeout)
		}
	})

	t.Run("credential store is the fallback", func(t *testing.T) {
		dir := isolate(t)
		if err := settings.SetAPIKey(settings.ServiceDeepL, "stored-key:fx", "http://localhost:9999"); err != nil {
			t.Fatal(err)
		}
		cfg, err := Load(Options{Dir: dir})
		if err != nil {
			t.Fatalf("Load error: %v", err)
		}
		if cfg.APIKey != "stored-key:fx" || !strings.HasPrefix(cfg.KeySource, "credential store") {
			t.Fatalf("APIKey = %q from %q", cfg.APIKey, cfg.KeySource)
		}
		if cfg.BaseURL != "http://localhost:9999" {
			t.Fatalf("BaseURL = %q", cfg.BaseURL)
		}
	})
}

func TestLoadExplicitConfigFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	writeFile(t, path, "source_lang: en\nproxy: http://proxy:3128\n")
	cfg, err := Load(Options{Dir: dir, ConfigFile: path})
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.SourceLang != "en" || cfg.Proxy != "http://proxy:3128" || cfg.ConfigFile != path {
		t.Fatalf("cfg = %+v", cfg)
	}

	if _, err := Load(Options{Dir: dir, ConfigFile: filepath.Join(dir, "missing.yaml")}); err == nil {
		t.Fatal("missing explicit config file should fail")
	}
}

func TestLoadMalformedConfigFile(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, FileName), "api_key: [unterminated\n")
	if _, err := Load(Options{Dir: dir}); err == nil {
		t.Fatal("malformed config file should fail")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{APIKey: "k", SourceLang: "en-GB", TargetLang: "pt_br", Timeout: time.Second}
	}

	cfg := valid()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if cfg.SourceLang != "EN" || cfg.TargetLang != "PT-BR" {
		t.Fatalf("languages = %q -> %q", cfg.SourceLang, cfg.TargetLang)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing key", func(c *Config) { c.APIKey = "" }, "API key"},
		{"missing target", func(c *Config) { c.TargetLang = "" }, "target language"},
		{"unknown target", func(c *Config) { c.TargetLang = "tlh" }, "unsupported language"},
		{"bad source", func(c *Config) { c.SourceLang = "xx yy" }, "source language"},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, "timeout"},
		{"bad base url", func(c *Config) { c.BaseURL = "ftp://x" }, "base URL"},
		{"bad proxy", func(c *Config) { c.Proxy = "not a url" }, "proxy"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := valid()
			tc.mutate(c)
			err := c.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tc.want)
			}
		})
	}
}

func TestClientOptions(t *testing.T) {
	cfg := &Config{APIKey: "k:fx", Timeout: time.Second, BaseURL: "http://localhost:1/"}
	c := translate.NewClient(cfg.APIKey, cfg.ClientOptions()...)
	if c.BaseURL() != "http://localhost:1" {
		t.Fatalf("BaseURL = %q", c.BaseURL())
	}

	cfg.BaseURL = ""
	c = translate.NewClient(cfg.APIKey, cfg.ClientOptions()...)
	if c.BaseURL() != translate.FreeBaseURL {
		t.Fatalf("BaseURL = %q, want free endpoint", c.BaseURL())
	}
}
