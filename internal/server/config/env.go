package config

import "github.com/caarlos0/env/v11"

// parseEnv overlays values from environment variables onto the Config.
// Only variables that are actually set override earlier layers. A variable
// that cannot be parsed (e.g. a malformed duration) panics: misconfigured
// environments must not start the server.
func parseEnv(config *Config) {
	if err := env.Parse(config); err != nil {
		panic(err)
	}
}
