package config

import (
	"os"
	"time"
)

type Config struct {
	Port          string
	MongoURI      string
	MongoDB       string
	DefaultBoard  string
	TokenSecret   string
	TokenTTL      time.Duration
	IdempKeyTTL   time.Duration
	SweepInterval time.Duration
}

func Load() Config {
	return Config{
		Port:          getEnv("PORT", "8080"),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:       getEnv("MONGO_DB", "boardlock"),
		DefaultBoard:  getEnv("DEFAULT_BOARD", "main"),
		TokenSecret:   getEnv("TOKEN_SECRET", "dev-secret-change-me"),
		TokenTTL:      getDuration("TOKEN_TTL", 12*time.Hour),
		IdempKeyTTL:   getDuration("IDEMP_KEY_TTL", 24*time.Hour),
		SweepInterval: getDuration("SWEEP_INTERVAL", time.Hour),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
