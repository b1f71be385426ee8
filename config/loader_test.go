package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leeforge/recaptcha/captcha"
	"github.com/leeforge/recaptcha/errors"
)

const baseYAML = `
recaptcha:
  site_key: file-site
  version: v3
  skip_ip:
    - 127.0.0.1
  default_form_id: from-file
  tag_attributes:
    theme: dark
`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestParseMode(t *testing.T) {
	tests := map[string]Mode{
		"":            DevMode,
		"dev":         DevMode,
		"Production":  ProMode,
		" prod ":      ProMode,
		"testing":     TestMode,
		"unknown-env": DevMode,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseMode(in), in)
	}
}

func TestModeFileNames(t *testing.T) {
	assert.Equal(t, []string{
		"config", "config.local", "config.production", "config.production.local",
		"config.pro", "config.pro.local", "config.prod", "config.prod.local",
	}, ProMode.fileNames("config"))
	assert.Equal(t, []string{"app", "app.local", "app.test", "app.test.local"}, TestMode.fileNames("app"))
}

func TestLoadLayersFilesAndEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", baseYAML)
	writeFile(t, dir, "config.local.yaml", "recaptcha:\n  default_form_id: local-form\n")
	writeFile(t, dir, "config.test.yaml", "recaptcha:\n  app_url: https://test.example\n")
	writeFile(t, dir, "config.production.yaml", "recaptcha:\n  app_url: https://prod.example\n")

	t.Setenv(ModeEnvKey, "test")
	t.Setenv("RECAPTCHA_SECRET_KEY", "env-secret")
	t.Setenv("RECAPTCHA_VERSION", "invisible")

	l, err := Load(Options{BasePath: dir})
	require.NoError(t, err)
	assert.Equal(t, TestMode, l.Mode())
	assert.Len(t, l.Files(), 3)

	settings, err := l.RecaptchaSettings()
	require.NoError(t, err)
	assert.Equal(t, "file-site", settings.SiteKey)
	assert.Equal(t, "env-secret", settings.SecretKey)
	assert.Equal(t, "invisible", settings.Version)
	assert.Equal(t, []string{"127.0.0.1"}, settings.SkipIP)
	assert.Equal(t, 10*time.Second, settings.Timeout)
	assert.Equal(t, "www.google.com", settings.APIDomain)

	p := NewProvider(l)
	assert.Equal(t, "local-form", p.GetString(captcha.KeyFormID, "d"))
	assert.Equal(t, "https://test.example", p.GetString(captcha.KeyAppURL, ""))
	assert.Equal(t, "dark", p.GetString(captcha.KeyTagAttributes+".theme", ""))
}

func TestLoadEnvPrefix(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", baseYAML)
	t.Setenv("APP_RECAPTCHA_SITE_KEY", "prefixed")

	l, err := Load(Options{BasePath: dir, EnvPrefix: "app"})
	require.NoError(t, err)
	assert.Equal(t, "prefixed", l.Get("recaptcha.site_key"))
}

func TestLoadMissingFiles(t *testing.T) {
	_, err := Load(Options{BasePath: t.TempDir()})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
}

func TestLoadAllowMissingUsesEnv(t *testing.T) {
	t.Setenv("RECAPTCHA_SITE_KEY", "env-site")
	t.Setenv("RECAPTCHA_SKIP_IP", "10.0.0.1, 10.0.0.2")

	l, err := Load(Options{BasePath: t.TempDir(), AllowMissing: true})
	require.NoError(t, err)
	assert.Empty(t, l.Files())

	settings, err := l.RecaptchaSettings()
	require.NoError(t, err)
	assert.Equal(t, "env-site", settings.SiteKey)
	assert.Equal(t, "v2", settings.Version)

	p := NewProvider(l)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, p.GetStringSlice(captcha.KeySkipIP, nil))
	assert.Equal(t, captcha.DefaultTokenParameterName,
		p.GetString(captcha.KeyTokenParameterName, captcha.DefaultTokenParameterName))
}

func TestLoadAll(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", "app:\n  name: demo\n")
	writeFile(t, dir, "captcha.yaml", baseYAML)
	writeFile(t, dir, "captcha.local.yaml", "recaptcha:\n  site_key: local-site\n")

	l, err := Load(Options{BasePath: dir, LoadAll: true})
	require.NoError(t, err)

	files := l.Files()
	require.Len(t, files, 3)
	assert.Equal(t, filepath.Join(dir, "config.yaml"), files[0])
	assert.Equal(t, "demo", l.Get("app.name"))
	assert.Equal(t, "local-site", l.Get("recaptcha.site_key"))
}

func TestLoadInvalidFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", "recaptcha: [unterminated")

	_, err := Load(Options{BasePath: dir})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
}

func TestSnapshotRestore(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", baseYAML)
	l, err := Load(Options{BasePath: dir})
	require.NoError(t, err)

	require.Error(t, l.Restore())

	snap := l.Snapshot()
	assert.Equal(t, "file-site", snap["recaptcha.site_key"])

	l.Set("recaptcha.site_key", "changed")
	assert.Equal(t, "changed", l.Get("recaptcha.site_key"))

	require.NoError(t, l.Restore())
	assert.Equal(t, "file-site", l.Get("recaptcha.site_key"))
}

func TestBindWithDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", "server:\n  addr: \":9000\"\n")
	l, err := Load(Options{BasePath: dir})
	require.NoError(t, err)

	var cfg struct {
		Server struct {
			Addr string `mapstructure:"addr" default:":8080"`
			Name string `mapstructure:"name" default:"recaptcha-demo"`
		} `mapstructure:"server"`
	}
	require.NoError(t, l.BindWithDefaults(&cfg))
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "recaptcha-demo", cfg.Server.Name)

	assert.Error(t, l.Bind(nil))
}

func TestWatchReloadsProvider(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", baseYAML)

	changed := make(chan struct{}, 16)
	l, err := Load(Options{BasePath: dir, OnChange: func(_ fsnotify.Event) {
		select {
		case changed <- struct{}{}:
		default:
		}
	}})
	require.NoError(t, err)
	require.NoError(t, l.Watch())
	t.Cleanup(func() { _ = l.Close() })

	p := NewProvider(l)
	require.Equal(t, "from-file", p.GetString(captcha.KeyFormID, ""))

	writeFile(t, dir, "config.local.yaml", "recaptcha:\n  default_form_id: reloaded\n")

	require.Eventually(t, func() bool {
		return p.GetString(captcha.KeyFormID, "") == "reloaded"
	}, 5*time.Second, 20*time.Millisecond)

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("OnChange was not called")
	}
}
