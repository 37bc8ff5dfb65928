package config

import "time"

// Config is the root configuration for a spotfeed instance.
type Config struct {
	Instance InstanceConfig `yaml:"instance"`
	API      APIConfig      `yaml:"api"`
	Feed     FeedConfig     `yaml:"feed"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Health   HealthConfig   `yaml:"health"`
}

// InstanceConfig identifies this screen instance.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// APIConfig holds admin REST API settings.
type APIConfig struct {
	BaseURL    string        `yaml:"base_url"`
	AdminID    string        `yaml:"admin_id"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// FeedConfig holds quote feed settings. URL is optional: when empty the
// endpoint is discovered via the admin API's server-url collaborator.
type FeedConfig struct {
	URL                string        `yaml:"url"`
	Secret             string        `yaml:"secret"`
	Symbols            []string      `yaml:"symbols"`
	PingTimeout        time.Duration `yaml:"ping_timeout"`
	WriteTimeout       time.Duration `yaml:"write_timeout"`
	BufferSize         int           `yaml:"buffer_size"`
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
}

// CatalogConfig holds commodity/spread refresh settings.
type CatalogConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

// HealthConfig holds the health endpoint settings.
type HealthConfig struct {
	Port int `yaml:"port"`
}
