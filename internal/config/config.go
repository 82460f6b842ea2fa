// Package config loads fluidmap's entrypoint configuration: a YAML file
// plus environment overrides, via koanf, mirroring the layered
// defaults/file/env load sequence used elsewhere in the example corpus.
package config

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Server holds cmd/fluidmapd's settings.
type Server struct {
	ListenAddr  string `koanf:"listen_addr"`
	DatabaseURL string `koanf:"database_url"`
}

var k = koanf.New(".")

// Load reads path (if non-empty) as YAML, then overlays any
// FLUIDMAP_-prefixed environment variable (FLUIDMAP_LISTEN_ADDR maps to
// listen_addr, FLUIDMAP_DATABASE_URL to database_url) on top of the
// built-in defaults.
func Load(path string) (Server, error) {
	k.Set("listen_addr", ":3000")
	k.Set("database_url", "")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Server{}, err
		}
	}

	if err := k.Load(env.Provider("FLUIDMAP_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "FLUIDMAP_"))
	}), nil); err != nil {
		return Server{}, err
	}

	var cfg Server
	if err := k.Unmarshal("", &cfg); err != nil {
		return Server{}, err
	}
	return cfg, nil
}
