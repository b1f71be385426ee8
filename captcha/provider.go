package captcha

import (
	"fmt"
	"strconv"
	"strings"
)

// MapProvider is a ConfigProvider backed by a flat map of dotted keys.
// Used for tests and inline configuration.
type MapProvider struct {
	settings map[string]any
}

// NewMapProvider creates a MapProvider; a nil map behaves as empty.
func NewMapProvider(settings map[string]any) *MapProvider {
	if settings == nil {
		settings = make(map[string]any)
	}
	return &MapProvider{settings: settings}
}

func (p *MapProvider) Get(key string) (any, bool) {
	v, ok := p.settings[key]
	return v, ok
}

func (p *MapProvider) GetString(key string, defaultVal string) string {
	v, ok := p.settings[key]
	if !ok || v == nil {
		return defaultVal
	}
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	case int, int64, float64, bool:
		return fmt.Sprint(s)
	default:
		return defaultVal
	}
}

func (p *MapProvider) GetBool(key string, defaultVal bool) bool {
	v, ok := p.settings[key]
	if !ok {
		return defaultVal
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return defaultVal
		}
		return parsed
	default:
		return defaultVal
	}
}

func (p *MapProvider) GetStringSlice(key string, defaultVal []string) []string {
	v, ok := p.settings[key]
	if !ok {
		return defaultVal
	}
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	case string:
		return SplitList(s)
	default:
		return defaultVal
	}
}

// SplitList splits a comma separated setting, dropping blanks.
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

type emptyProvider struct{}

func (emptyProvider) Get(string) (any, bool)                       { return nil, false }
func (emptyProvider) GetString(_ string, d string) string          { return d }
func (emptyProvider) GetBool(_ string, d bool) bool                { return d }
func (emptyProvider) GetStringSlice(_ string, d []string) []string { return d }

// EmptyProvider returns a ConfigProvider that always returns defaults.
func EmptyProvider() ConfigProvider { return emptyProvider{} }

// chainProvider asks each provider in turn; the first one holding the key wins.
type chainProvider []ConfigProvider

// Chain layers providers, earlier ones taking precedence. Nil entries are skipped.
func Chain(providers ...ConfigProvider) ConfigProvider {
	out := make(chainProvider, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (c chainProvider) owner(key string) ConfigProvider {
	for _, p := range c {
		if _, ok := p.Get(key); ok {
			return p
		}
	}
	return nil
}

func (c chainProvider) Get(key string) (any, bool) {
	for _, p := range c {
		if v, ok := p.Get(key); ok {
			return v, true
		}
	}
	return nil, false
}

func (c chainProvider) GetString(key string, defaultVal string) string {
	if p := c.owner(key); p != nil {
		return p.GetString(key, defaultVal)
	}
	return defaultVal
}

func (c chainProvider) GetBool(key string, defaultVal bool) bool {
	if p := c.owner(key); p != nil {
		return p.GetBool(key, defaultVal)
	}
	return defaultVal
}

func (c chainProvider) GetStringSlice(key string, defaultVal []string) []string {
	if p := c.owner(key); p != nil {
		return p.GetStringSlice(key, defaultVal)
	}
	return defaultVal
}
