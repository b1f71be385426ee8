package config

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	redis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/leeforge/recaptcha/captcha"
	"github.com/leeforge/recaptcha/errors"
	"github.com/leeforge/recaptcha/logging"
)

// RedisOptions locate the hash that holds captcha settings, one field per
// dotted key (e.g. "recaptcha.default_form_id").
type RedisOptions struct {
	Host     string        `mapstructure:"host" json:"host" yaml:"host" default:"127.0.0.1"`
	Port     string        `mapstructure:"port" json:"port" yaml:"port" default:"6379"`
	Password string        `mapstructure:"password" json:"password" yaml:"password"`
	DB       int           `mapstructure:"db" json:"db" yaml:"db"`
	Key      string        `mapstructure:"key" json:"key" yaml:"key" default:"recaptcha:settings"`
	Timeout  time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout" default:"500ms"`
}

func (o RedisOptions) Addr() string {
	return fmt.Sprintf("%s:%s", o.Host, o.Port)
}

func (o RedisOptions) logFields() []zap.Field {
	password := "<empty>"
	if o.Password != "" {
		password = "[REDACTED]"
	}
	return []zap.Field{
		zap.String("addr", o.Addr()),
		zap.Int("db", o.DB),
		zap.String("password", password),
		zap.String("key", o.Key),
	}
}

// NewRedisClient connects and pings.
func NewRedisClient(ctx context.Context, opts RedisOptions, logger logging.Logger) (*redis.Client, error) {
	if err := defaults.Set(&opts); err != nil {
		return nil, errors.WrapWithType(err, errors.ErrorTypeConfiguration, "apply redis defaults")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr(),
		Password: opts.Password,
		DB:       opts.DB,
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, errors.NewExternal("redis ping failed").WithInnerError(err).WithDetail("addr", opts.Addr())
	}
	if logger != nil {
		logger.Info("redis connected", opts.logFields()...)
	}
	return client, nil
}

var _ captcha.ConfigProvider = (*RedisProvider)(nil)

// RedisProvider reads captcha settings from a Redis hash on every call.
// Any Redis failure yields the caller's default.
type RedisProvider struct {
	client  redis.UniversalClient
	key     string
	timeout time.Duration
	logger  logging.Logger
}

func NewRedisProvider(client redis.UniversalClient, opts RedisOptions, logger logging.Logger) *RedisProvider {
	_ = defaults.Set(&opts)
	if logger == nil {
		logger = logging.NewNop()
	}
	return &RedisProvider{
		client:  client,
		key:     opts.Key,
		timeout: opts.Timeout,
		logger:  logger.Named("config.redis"),
	}
}

func (p *RedisProvider) lookup(key string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	val, err := p.client.HGet(ctx, p.key, key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		p.logger.Warn("redis settings lookup failed", zap.String("field", key), zap.Error(err))
		return "", false
	}
	return val, true
}

func (p *RedisProvider) Get(key string) (any, bool) {
	val, ok := p.lookup(key)
	if !ok {
		return nil, false
	}
	return val, true
}

func (p *RedisProvider) GetString(key string, defaultVal string) string {
	if val, ok := p.lookup(key); ok {
		return val
	}
	return defaultVal
}

func (p *RedisProvider) GetBool(key string, defaultVal bool) bool {
	val, ok := p.lookup(key)
	if !ok {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

func (p *RedisProvider) GetStringSlice(key string, defaultVal []string) []string {
	if val, ok := p.lookup(key); ok {
		return captcha.SplitList(val)
	}
	return defaultVal
}

// Store writes settings into the hash, replacing existing fields.
func (p *RedisProvider) Store(ctx context.Context, settings map[string]string) error {
	if len(settings) == 0 {
		return nil
	}
	values := make([]any, 0, len(settings)*2)
	for k, v := range settings {
		values = append(values, k, v)
	}
	if err := p.client.HSet(ctx, p.key, values...).Err(); err != nil {
		return errors.NewExternal("store settings in redis").WithInnerError(err).WithDetail("key", p.key)
	}
	return nil
}
