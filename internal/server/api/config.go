package api

import "time"

// ServerConfig is the API section of the serve command.
type ServerConfig struct {
	Addr string `help:"API server listen address" default:":3252" env:"PADMAP_API_ADDR"`
	// ConnectionTimeout bounds reading the request of a connection.
	ConnectionTimeout time.Duration `help:"Time a client has to send its request" default:"5s" env:"PADMAP_API_CONNECTION_TIMEOUT"`
	KeyFile           string        `help:"File holding the API password, created with a random one when missing; defaults to api.key in the config directory" env:"PADMAP_API_KEY_FILE"`
	LocalAuth         bool          `help:"Require the password from loopback clients as well" env:"PADMAP_API_LOCAL_AUTH"`
	// Password enables authentication; clients on other hosts must then
	// present it.
	Password string `kong:"-"`
}
