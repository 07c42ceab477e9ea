// Package config loads process configuration from environment variables.
//
// It combines github.com/joho/godotenv (optional .env files) with
// github.com/caarlos0/env/v11 (struct tag parsing). Every package that needs
// settings declares its own Config struct with `env` and `envDefault` tags and
// the entry point loads each of them:
//
//	var pgCfg pg.Config
//	config.MustLoad(&pgCfg)
//
//	var transferCfg transfer.Config
//	if err := config.Load(&transferCfg); err != nil {
//		log.Fatal(err)
//	}
//
// Parsed values are cached per type for the life of the process. Tests that
// change the environment between loads call Reset.
//
// Errors can be matched with errors.Is against ErrParsingConfig,
// ErrLoadingEnvFile and ErrNilPointer.
package config
