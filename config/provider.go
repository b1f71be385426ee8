package config

import (
	"github.com/spf13/viper"

	"github.com/leeforge/recaptcha/captcha"
)

var _ captcha.ConfigProvider = (*Provider)(nil)

// Provider serves captcha settings straight from a Loader, so a reload is
// visible on the next render.
type Provider struct {
	loader *Loader
}

func NewProvider(loader *Loader) *Provider {
	return &Provider{loader: loader}
}

func (p *Provider) read(fn func(v *viper.Viper)) {
	p.loader.mu.RLock()
	defer p.loader.mu.RUnlock()
	fn(p.loader.v)
}

func (p *Provider) Get(key string) (value any, ok bool) {
	p.read(func(v *viper.Viper) {
		if ok = v.IsSet(key); ok {
			value = v.Get(key)
		}
	})
	return value, ok
}

func (p *Provider) GetString(key string, defaultVal string) string {
	out := defaultVal
	p.read(func(v *viper.Viper) {
		if v.IsSet(key) {
			out = v.GetString(key)
		}
	})
	return out
}

func (p *Provider) GetBool(key string, defaultVal bool) bool {
	out := defaultVal
	p.read(func(v *viper.Viper) {
		if v.IsSet(key) {
			out = v.GetBool(key)
		}
	})
	return out
}

// GetStringSlice accepts YAML lists and comma separated strings from env.
func (p *Provider) GetStringSlice(key string, defaultVal []string) []string {
	out := defaultVal
	p.read(func(v *viper.Viper) {
		if !v.IsSet(key) {
			return
		}
		if s, ok := v.Get(key).(string); ok {
			out = captcha.SplitList(s)
			return
		}
		out = v.GetStringSlice(key)
	})
	return out
}
