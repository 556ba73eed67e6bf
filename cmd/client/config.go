package main

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// COLLAB_SERVER_URL is the websocket endpoint of the server
	ServerURL string `envconfig:"COLLAB_SERVER_URL" default:"ws://localhost:3001/ws"`
	// COLLAB_ORIGIN is sent as the Origin header, it must be allowed by the server
	Origin   string `envconfig:"COLLAB_ORIGIN" default:"http://localhost"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`
	// COLLAB_COLOURS enables colorized output for better readability
	Colours bool `envconfig:"COLLAB_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
