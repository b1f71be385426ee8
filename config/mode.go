package config

import (
	"os"
	"strings"
)

const ModeEnvKey = "GO_ENV_MODE"

type Mode string

const (
	DevMode  Mode = "development"
	ProMode  Mode = "production"
	TestMode Mode = "test"
)

func ParseMode(env string) Mode {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "pro":
		return ProMode
	case "test", "testing":
		return TestMode
	default:
		return DevMode
	}
}

// CurrentMode reads GO_ENV_MODE on every call.
func CurrentMode() Mode {
	return ParseMode(os.Getenv(ModeEnvKey))
}

// fileNames lists the candidate base names for name in load order. Later
// files override earlier ones.
func (m Mode) fileNames(name string) []string {
	names := []string{
		name,
		name + ".local",
		name + "." + string(m),
		name + "." + string(m) + ".local",
	}
	var aliases []string
	switch m {
	case DevMode:
		aliases = []string{"dev"}
	case ProMode:
		aliases = []string{"pro", "prod"}
	}
	for _, alias := range aliases {
		names = append(names, name+"."+alias, name+"."+alias+".local")
	}
	return names
}
