package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// envDefaults are used for every flag not given on the command line
type envDefaults struct {
	Audience        string `env:"TOKENGEN_AUDIENCE"`
	Issuer          string `env:"TOKENGEN_ISSUER"`
	Secret          string `env:"TOKENGEN_SECRET"`
	SecretFile      string `env:"TOKENGEN_SECRET_FILE"`
	ExpirationHours int    `env:"TOKENGEN_EXPIRATION_HOURS" envDefault:"1"`
	Subject         string `env:"TOKENGEN_SUBJECT"`
	Claims          string `env:"TOKENGEN_CLAIMS"`
}

// loadEnvDefaults reads envFile (if any) into the process environment without
// overriding variables that are already set, then parses TOKENGEN_* values.
// A missing envFile is not an error.
func loadEnvDefaults(envFile string) (envDefaults, error) {
	var d envDefaults

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return d, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	if err := env.Parse(&d); err != nil {
		return d, fmt.Errorf("parsing environment: %w", err)
	}
	return d, nil
}
