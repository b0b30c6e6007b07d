package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dailymanifest/internal/classify"
	"dailymanifest/internal/ics"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FirstRunWritesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoad_PartialFileIsNormalized(t *testing.T) {
	path := writeFile(t, `
timezone: UTC
ics:
  - url: https://bookings.example.com/cal.ics?key=abc
    name: Front desk
rules:
  - test: kayak
    category: kayak
    display_name: Kayak
    color: "#0ea5e9"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, defaultListen, cfg.Listen)
	assert.Equal(t, defaultRefresh, cfg.RefreshCron)
	assert.Equal(t, 3, cfg.WindowDays)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "UTC", cfg.Location().String())

	assert.Equal(t, []ics.Feed{{ID: "Front desk", Name: "Front desk", URL: "https://bookings.example.com/cal.ics?key=abc"}}, cfg.Feeds())
	assert.Equal(t, []classify.Rule{{Test: "kayak", Category: "kayak", DisplayName: "Kayak", Color: "#0ea5e9"}}, cfg.ClassifyRules())
}

func TestLoad_Invalid(t *testing.T) {
	path := writeFile(t, `
refresh: "every now and then"
window_days: 90
log_format: xml
ics:
  - name: no url
rules:
  - test: kayak
    color: blue
`)

	_, err := Load(path)
	require.Error(t, err)

	msg := err.Error()
	for _, want := range []string{
		"window_days",
		"log_format",
		"ics[0].url",
		"rules[0].category",
		"rules[0].display_name",
		"rules[0].color",
		"refresh:",
	} {
		assert.Contains(t, msg, want)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeFile(t, "listen: [unclosed"))
	assert.Error(t, err)

	_, err = Load("")
	assert.Error(t, err)
}

func TestValidate_Timezone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timezone = "Nowhere/Special"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timezone")

	assert.NoError(t, DefaultConfig().Validate())
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.ICS = append(cfg.ICS, ICSConfig{ID: "desk", URL: "https://example.com/a.ics"})
	cfg.BasicAuth = &BasicAuthConfig{Username: "staff", Password: "s3cret"}

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
	assert.True(t, loaded.BasicAuthEnabled())
}

func TestFeeds_DerivesIDs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ICS = []ICSConfig{
		{ID: "explicit", Name: "Named", URL: "https://a.example.com/x.ics"},
		{URL: "https://b.example.com/y.ics"},
		{Name: "skipped"},
	}

	feeds := cfg.Feeds()
	require.Len(t, feeds, 2)
	assert.Equal(t, "explicit", feeds[0].ID)
	assert.Equal(t, "https://b.example.com/y.ics", feeds[1].ID)
}

func TestBasicAuthEnabled(t *testing.T) {
	cfg := DefaultConfig()
	assert.False(t, cfg.BasicAuthEnabled())

	cfg.BasicAuth = &BasicAuthConfig{Username: "staff"}
	assert.False(t, cfg.BasicAuthEnabled())

	cfg.BasicAuth.Password = "pw"
	assert.True(t, cfg.BasicAuthEnabled())
}
