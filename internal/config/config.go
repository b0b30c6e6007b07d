package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"dailymanifest/internal/classify"
	"dailymanifest/internal/ics"
	appLog "dailymanifest/internal/log"
)

const (
	defaultListen     = "127.0.0.1:8080"
	defaultTimezone   = "Local"
	defaultRefresh    = "*/5 * * * *"
	defaultWindowDays = 3
	defaultCacheDir   = "./var/ics-cache"
	defaultLogLevel   = "info"
	defaultLogFormat  = "text"
)

// validate checks Config structs; field names in errors follow the yaml keys.
var validate = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}()

// ICSConfig describes a single booking calendar subscription.
type ICSConfig struct {
	URL string `yaml:"url" json:"url" validate:"required,url"`
	// ID is used for cache keys and logging. Defaults to Name, then URL.
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

// RuleConfig is an extra classification rule, checked after the built-in
// rules in file order.
type RuleConfig struct {
	Test        string `yaml:"test" json:"test" validate:"required"`
	Category    string `yaml:"category" json:"category" validate:"required"`
	DisplayName string `yaml:"display_name" json:"display_name" validate:"required"`
	Color       string `yaml:"color" json:"color" validate:"omitempty,hexcolor"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen" validate:"required"`

	// Timezone is the IANA zone that defines calendar days, e.g.
	// "America/Denver". "Local" uses the host zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// RefreshCron is a standard 5-field cron spec for re-fetching feeds.
	RefreshCron string `yaml:"refresh" json:"refresh" validate:"required"`

	// WindowDays is the number of displayed days starting today.
	WindowDays int `yaml:"window_days" json:"window_days" validate:"gte=1,lte=31"`

	// BackfillDays extends the fetch window into the past.
	BackfillDays int `yaml:"backfill_days" json:"backfill_days" validate:"gte=0,lte=31"`

	CacheDir  string `yaml:"cache_dir" json:"cache_dir"`
	LogLevel  string `yaml:"log_level" json:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `yaml:"log_format" json:"log_format" validate:"oneof=text json"`

	ICS   []ICSConfig  `yaml:"ics" json:"ics" validate:"dive"`
	Rules []RuleConfig `yaml:"rules" json:"rules" validate:"dive"`

	// BasicAuth, if set with both fields, protects everything but /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      defaultListen,
		Timezone:    defaultTimezone,
		RefreshCron: defaultRefresh,
		WindowDays:  defaultWindowDays,
		CacheDir:    defaultCacheDir,
		LogLevel:    defaultLogLevel,
		LogFormat:   defaultLogFormat,
		ICS:         []ICSConfig{},
		Rules:       []RuleConfig{},
	}
}

// Normalize fills zero values with defaults so partial files still work.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefresh
	}
	if c.WindowDays <= 0 {
		c.WindowDays = defaultWindowDays
	}
	if c.BackfillDays < 0 {
		c.BackfillDays = 0
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	if c.LogFormat == "" {
		c.LogFormat = defaultLogFormat
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	if c.Rules == nil {
		c.Rules = []RuleConfig{}
	}
}

// Validate reports every invalid field, plus an unparseable refresh spec
// or timezone.
func (c *Config) Validate() error {
	var errs []error
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			errs = append(errs, fmt.Errorf("%s: failed %q", fieldPath(fe), fe.Tag()))
		}
	}
	if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
		errs = append(errs, fmt.Errorf("refresh: %w", err))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// fieldPath strips the root struct name from a namespace like
// "Config.ics[0].url".
func fieldPath(fe validator.FieldError) string {
	_, path, ok := strings.Cut(fe.Namespace(), ".")
	if !ok {
		return fe.Field()
	}
	return path
}

// Location resolves Timezone, falling back to the host zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", c.Timezone)
		return time.Local
	}
	return loc
}

// Feeds converts the ICS entries into fetchable feeds, skipping entries
// without a URL and deriving missing IDs.
func (c *Config) Feeds() []ics.Feed {
	feeds := make([]ics.Feed, 0, len(c.ICS))
	for _, src := range c.ICS {
		if src.URL == "" {
			continue
		}
		id := src.ID
		if id == "" {
			id = src.Name
		}
		if id == "" {
			id = src.URL
		}
		feeds = append(feeds, ics.Feed{ID: id, Name: src.Name, URL: src.URL})
	}
	return feeds
}

// ClassifyRules converts the extra rules for classify.New.
func (c *Config) ClassifyRules() []classify.Rule {
	rules := make([]classify.Rule, 0, len(c.Rules))
	for _, r := range c.Rules {
		rules = append(rules, classify.Rule{
			Test:        r.Test,
			Category:    r.Category,
			DisplayName: r.DisplayName,
			Color:       r.Color,
		})
	}
	return rules
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is decoded, normalized and validated.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			appLog.Info("wrote default config", "path", path)
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes cfg to path atomically via a temp file and rename, with
// 0600 permissions on the result.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".dailymanifest-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

// Summary lists the effective settings as log key/values.
func (c *Config) Summary() []any {
	feeds := make([]string, 0, len(c.ICS))
	for _, f := range c.Feeds() {
		feeds = append(feeds, f.ID)
	}
	sort.Strings(feeds)
	return []any{
		"listen", c.Listen,
		"timezone", c.Timezone,
		"refresh", c.RefreshCron,
		"window_days", c.WindowDays,
		"backfill_days", c.BackfillDays,
		"feeds", strings.Join(feeds, ","),
		"extra_rules", len(c.Rules),
		"basic_auth", c.BasicAuthEnabled(),
	}
}

// BasicAuthEnabled reports whether both credentials are set.
func (c *Config) BasicAuthEnabled() bool {
	return c.BasicAuth != nil && c.BasicAuth.Username != "" && c.BasicAuth.Password != ""
}
