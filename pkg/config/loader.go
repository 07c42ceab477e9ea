package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	cache   sync.Map // reflect.Type -> any
	envOnce sync.Once
)

// Load parses environment variables into v using `env` and `envDefault` struct tags.
// The .env file in the working directory (or the files passed to LoadEnv) is read
// once before the first parse. Each config type is parsed once; later calls for
// the same type receive the cached copy.
//
// Example:
//
//	type Config struct {
//		MaxUploadSize int64         `env:"TRANSFER_MAX_UPLOAD_SIZE" envDefault:"10485760"`
//		Lockout       time.Duration `env:"OTP_LOCKOUT" envDefault:"10m"`
//		Secret        string        `env:"KEY_FINGERPRINT_SECRET,required"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	envOnce.Do(func() {
		// A missing .env file is normal outside local development.
		_ = godotenv.Load()
	})

	key := typeKey[T]()
	if cached, ok := cache.Load(key); ok {
		*v = cached.(T)
		return nil
	}

	var parsed T
	if err := env.Parse(&parsed); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	actual, _ := cache.LoadOrStore(key, parsed)
	*v = actual.(T)
	return nil
}

// MustLoad is like Load but panics on error.
// Use it for configuration the process cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
}

// LoadEnv reads the given dotenv files into the process environment without
// overriding variables that are already set. It must be called before the
// first Load to have any effect on cached configs.
func LoadEnv(paths ...string) error {
	var err error
	envOnce.Do(func() {
		err = godotenv.Load(paths...)
	})
	if err != nil {
		return errors.Join(ErrLoadingEnvFile, err)
	}
	return nil
}

// Reset drops every cached config so the next Load parses the environment again.
// Intended for tests.
func Reset() {
	cache.Range(func(k, _ any) bool {
		cache.Delete(k)
		return true
	})
}

func typeKey[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
