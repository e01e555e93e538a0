package config

import "time"

type Config struct {
	Env       string
	Server    ServerConfig
	Transport TransportConfig
	Storage   StorageConfig
	Redis     RedisConfig
}

type ServerConfig struct {
	Address         string
	Auth            AuthConfig
	ConnectionLimit ConnectionLimitConfig `mapstructure:"connectionLimit"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwtSecret"`
	TokenTTL  time.Duration `mapstructure:"tokenTTL"`
}

type ConnectionLimitConfig struct {
	MaxPerUser int    `mapstructure:"maxPerUser"`
	Mode       string `mapstructure:"mode"` // "reject" or "cycle"
}

type TransportConfig struct {
	ReadTimeout time.Duration `mapstructure:"readTimeout"`
}

type StorageConfig struct {
	Driver      string `mapstructure:"driver"` // "sqlite" or "postgres"
	DatabaseURL string `mapstructure:"databaseUrl"`
	SQLitePath  string `mapstructure:"sqlitePath"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// IsDevelopment reports whether the process runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
