package config

import (
	"fmt"
	"os"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	envFileOnce sync.Once

	cacheMu sync.RWMutex
	cache   = map[reflect.Type]any{}
)

// loadEnvFile loads a .env file from the working directory, if present.
// Missing .env files are not an error: environment variables may already
// be set by the process's own environment (container, systemd, CI).
func loadEnvFile() {
	envFileOnce.Do(func() {
		if _, err := os.Stat(".env"); err == nil {
			_ = godotenv.Load()
		}
	})
}

// Load populates cfg from environment variables using struct `env` tags
// and caches the result by type. A second Load call for the same type
// returns the cached value without re-reading the environment.
func Load[T any](cfg *T) error {
	loadEnvFile()

	t := reflect.TypeOf(*cfg)

	cacheMu.RLock()
	if cached, ok := cache[t]; ok {
		cacheMu.RUnlock()
		*cfg = *(cached.(*T))
		return nil
	}
	cacheMu.RUnlock()

	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", t, err)
	}

	cacheMu.Lock()
	cached := *cfg
	cache[t] = &cached
	cacheMu.Unlock()

	return nil
}

// MustLoad is Load, panicking on error. Intended for use during process
// startup, before any socket is opened.
func MustLoad[T any](cfg *T) {
	if err := Load(cfg); err != nil {
		panic(err)
	}
}
