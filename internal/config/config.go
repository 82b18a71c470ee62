package config

import (
	"encoding/hex"
	"fmt"
	"os"
)

type Config struct {
	Env              string
	ListenAddr       string
	DatabaseURL      string
	BlobDir          string
	BlobMasterKey    []byte
	LedgerURL        string
	LedgerAuthToken  string
	RedactionWorkers int
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func Load() (Config, error) {
	cfg := Config{
		Env:              getenv("APP_ENV", "development"),
		ListenAddr:       getenv("LISTEN_ADDR", ":8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		BlobDir:          getenv("BLOB_DIR", "./blobs"),
		LedgerURL:        os.Getenv("LEDGER_URL"),
		LedgerAuthToken:  os.Getenv("LEDGER_AUTH_TOKEN"),
		RedactionWorkers: getenvInt("REDACTION_WORKERS", 0),
	}
	if raw := os.Getenv("BLOB_MASTER_KEY"); raw != "" {
		key, err := hex.DecodeString(raw)
		if err != nil {
			return cfg, fmt.Errorf("BLOB_MASTER_KEY is not valid hex: %w", err)
		}
		if len(key) != 32 {
			return cfg, fmt.Errorf("BLOB_MASTER_KEY must be 32 bytes, got %d", len(key))
		}
		cfg.BlobMasterKey = key
	}
	if cfg.DatabaseURL == "" {
		// Not fatal for early local runs; warn via error value so callers can decide.
		return cfg, fmt.Errorf("DATABASE_URL not set")
	}
	return cfg, nil
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var out int
		_, err := fmt.Sscanf(v, "%d", &out)
		if err == nil {
			return out
		}
	}
	return def
}
