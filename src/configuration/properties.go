package configuration

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

type (
	Properties struct {
		LogLevel string `env:"LOG_LEVEL" envDefault:"debug"`

		Store  StoreProperties      `envPrefix:"STORE_"`
		DB     DBProperties         `envPrefix:"DB_"`
		S3     S3Properties         `envPrefix:"S3_"`
		Server HttpServerProperties `envPrefix:"HTTP_"`
	}

	// StoreProperties selects the catalog backend at startup. Supported
	// values are "sqlite" and "memory".
	StoreProperties struct {
		Backend string `env:"BACKEND" envDefault:"sqlite"`
	}

	DBProperties struct {
		Path string `env:"PATH" envDefault:"imghost.db"`
	}

	HttpServerProperties struct {
		Name        string        `env:"NAME" envDefault:"imghost"`
		Port        string        `env:"PORT" envDefault:"8088"`
		ReadTimeout time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	}

	S3Properties struct {
		Host      string `env:"HOST" envDefault:"localhost:9000"`
		AccessKey string `env:"ACCESS_KEY"`
		SecretKey string `env:"SECRET_KEY"`
		Bucket    string `env:"BUCKET" envDefault:"imghost"`
		UseSSL    bool   `env:"USE_SSL" envDefault:"false"`
		// Public applies a permissive read policy to the bucket so objects
		// can be served directly from the store instead of the proxy route.
		Public      bool          `env:"PUBLIC" envDefault:"false"`
		ReadTimeout time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	}
)

func ReadProperties() *Properties {
	config := &Properties{}

	if err := env.Parse(config); err != nil {
		panic(fmt.Errorf("read config error: %w", err))
	}
	return config
}
