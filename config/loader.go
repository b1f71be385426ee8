// Package config loads layered configuration files with viper and exposes
// them as a captcha.ConfigProvider.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/creasty/defaults"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/leeforge/recaptcha/captcha"
	"github.com/leeforge/recaptcha/errors"
	"github.com/leeforge/recaptcha/logging"
)

type Options struct {
	BasePath  string `default:"config"`
	FileName  string `default:"config"`
	FileType  string `default:"yaml"`
	EnvPrefix string
	// LoadAll merges every base name found under BasePath, not only FileName.
	LoadAll bool
	// AllowMissing starts from environment variables alone when no file exists.
	AllowMissing bool
	OnChange     func(e fsnotify.Event)
	Logger       logging.Logger
}

// DefaultOptions reads the base path from CONFIG_PATH.
func DefaultOptions() Options {
	opts := Options{BasePath: os.Getenv("CONFIG_PATH")}
	_ = defaults.Set(&opts)
	return opts
}

// Loader holds the merged configuration. Reads are safe while a watch
// reloads it.
type Loader struct {
	mu       sync.RWMutex
	v        *viper.Viper
	opts     Options
	mode     Mode
	files    []string
	snapshot map[string]any

	watchOnce sync.Once
	watcher   *fsnotify.Watcher
	logger    logging.Logger
}

func Load(opts Options) (*Loader, error) {
	if err := defaults.Set(&opts); err != nil {
		return nil, errors.WrapWithType(err, errors.ErrorTypeConfiguration, "❌ Failed to set config option defaults")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	l := &Loader{opts: opts, mode: CurrentMode(), logger: logger.Named("config")}
	v, files, err := l.read()
	if err != nil {
		return nil, err
	}
	l.v, l.files = v, files
	return l, nil
}

func (l *Loader) read() (*viper.Viper, []string, error) {
	files := configFilePaths(l.opts, l.mode)
	if l.opts.LoadAll {
		files = allConfigFilePaths(l.opts, l.mode)
	}
	if len(files) == 0 && !l.opts.AllowMissing {
		return nil, nil, errors.NewConfiguration(
			fmt.Sprintf("❌ No valid configuration files found in path: %s", l.opts.BasePath)).
			WithDetail("path", l.opts.BasePath)
	}

	v := viper.New()
	v.SetConfigType(l.opts.FileType)
	for _, file := range files {
		tempV := viper.New()
		tempV.SetConfigFile(file)
		if err := tempV.ReadInConfig(); err != nil {
			return nil, nil, errors.WrapWithType(err, errors.ErrorTypeConfiguration,
				fmt.Sprintf("❌ Error reading config file %s", file)).WithDetail("file", file)
		}
		for _, key := range tempV.AllKeys() {
			v.Set(key, tempV.Get(key))
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if l.opts.EnvPrefix != "" {
		v.SetEnvPrefix(l.opts.EnvPrefix)
	}
	v.AutomaticEnv()
	for _, key := range recaptchaKeys() {
		_ = v.BindEnv(key)
	}

	// values set from files sit above AutomaticEnv in viper's precedence
	applyEnvOverrides(v, l.opts.EnvPrefix)

	return v, files, nil
}

func applyEnvOverrides(v *viper.Viper, envPrefix string) {
	replacer := strings.NewReplacer(".", "_")
	for _, key := range v.AllKeys() {
		envKey := strings.ToUpper(replacer.Replace(key))
		if envPrefix != "" {
			envKey = strings.ToUpper(envPrefix) + "_" + envKey
		}
		if envValue := os.Getenv(envKey); envValue != "" {
			v.Set(key, envValue)
		}
	}
}

// recaptchaKeys are bound to the environment even when no file mentions them.
func recaptchaKeys() []string {
	keys := []string{
		"recaptcha.site_key",
		"recaptcha.secret_key",
		"recaptcha.version",
		"recaptcha.api_domain",
		"recaptcha.timeout",
		"recaptcha.min_score",
		captcha.KeySkipIP,
		"recaptcha.trusted_proxies",
		captcha.KeyTokenParameterName,
		captcha.KeyValidationRoute,
		captcha.KeyAppURL,
		captcha.KeyFormID,
		captcha.KeyLanguage,
		captcha.KeyExplicit,
	}
	for _, name := range captcha.TagAttributeNames {
		keys = append(keys, captcha.KeyTagAttributes+"."+name)
	}
	return keys
}

// Reload re-reads every file. On failure the previous values stay in place.
func (l *Loader) Reload() error {
	v, files, err := l.read()
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.v, l.files = v, files
	l.mu.Unlock()
	return nil
}

// Watch reloads whenever a file of the configured type changes under
// BasePath. It returns once the watcher is registered.
func (l *Loader) Watch() error {
	var err error
	l.watchOnce.Do(func() {
		var w *fsnotify.Watcher
		w, err = fsnotify.NewWatcher()
		if err != nil {
			err = errors.WrapWithType(err, errors.ErrorTypeInternal, "❌ Failed to create config watcher")
			return
		}
		if err = w.Add(l.opts.BasePath); err != nil {
			_ = w.Close()
			err = errors.WrapWithType(err, errors.ErrorTypeConfiguration, "❌ Failed to watch config path").
				WithDetail("path", l.opts.BasePath)
			return
		}
		l.watcher = w
		go l.watchLoop(w)
	})
	return err
}

func (l *Loader) watchLoop(w *fsnotify.Watcher) {
	suffix := "." + l.opts.FileType
	for {
		select {
		case e, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Ext(e.Name) != suffix || e.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if err := l.Reload(); err != nil {
				l.logger.Warn("config reload failed", zap.String("file", e.Name), zap.Error(err))
				continue
			}
			l.logger.Info("config reloaded", zap.String("file", e.Name), zap.String("op", e.Op.String()))
			if l.opts.OnChange != nil {
				l.opts.OnChange(e)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			l.logger.Warn("config watcher error", zap.Error(err))
		}
	}
}

// Close stops the watcher, if any.
func (l *Loader) Close() error {
	if l.watcher == nil {
		return nil
	}
	return l.watcher.Close()
}

func (l *Loader) Mode() Mode { return l.mode }

func (l *Loader) Files() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.files...)
}

func (l *Loader) Get(key string) any {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.v.Get(key)
}

func (l *Loader) IsSet(key string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.v.IsSet(key)
}

func (l *Loader) Set(key string, value any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.v.Set(key, value)
}

// Bind unmarshals the whole configuration into instance.
func (l *Loader) Bind(instance any) error {
	if instance == nil {
		return errors.NewConfiguration("❌ Target instance is nil")
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if err := l.v.Unmarshal(instance); err != nil {
		return errors.WrapWithType(err, errors.ErrorTypeConfiguration,
			fmt.Sprintf("❌ Failed to unmarshal config (path: %s, file: %s.%s)", l.opts.BasePath, l.opts.FileName, l.opts.FileType))
	}
	return nil
}

// BindWithDefaults fills `default:` tags around Bind so zero values left by
// the files are defaulted too.
func (l *Loader) BindWithDefaults(instance any) error {
	if err := defaults.Set(instance); err != nil {
		return errors.WrapWithType(err, errors.ErrorTypeConfiguration, "❌ Failed to set defaults")
	}
	if err := l.Bind(instance); err != nil {
		return err
	}
	if err := defaults.Set(instance); err != nil {
		return errors.WrapWithType(err, errors.ErrorTypeConfiguration, "❌ Failed to set defaults after unmarshal")
	}
	return nil
}

// RecaptchaSettings binds the "recaptcha" section.
func (l *Loader) RecaptchaSettings() (captcha.Settings, error) {
	var wrapper struct {
		Recaptcha captcha.Settings `mapstructure:"recaptcha"`
	}
	if err := l.BindWithDefaults(&wrapper); err != nil {
		return captcha.Settings{}, err
	}
	return wrapper.Recaptcha, nil
}

func (l *Loader) Snapshot() map[string]any {
	l.mu.Lock()
	defer l.mu.Unlock()
	snapshot := make(map[string]any)
	for _, key := range l.v.AllKeys() {
		if val := l.v.Get(key); val != nil {
			snapshot[key] = val
		}
	}
	l.snapshot = snapshot
	return snapshot
}

// Restore puts back the values captured by the last Snapshot.
func (l *Loader) Restore() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.snapshot == nil {
		return errors.NewConfiguration("❌ No snapshot available to restore")
	}
	for k, v := range l.snapshot {
		l.v.Set(k, v)
	}
	return nil
}
