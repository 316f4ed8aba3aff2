package main

import (
	"time"

	"github.com/franz/safetube/internal/store"
	"github.com/spf13/viper"
)

// storeConfig builds the database configuration with proper precedence:
// 1. Command-line flag (if set)
// 2. Environment variable (SAFETUBE_*)
// 3. Config file
// 4. Store defaults
func storeConfig() store.Config {
	cfg := store.Config{
		Path:           viper.GetString("db"),
		MaxConnections: viper.GetInt("max-connections"),
		BusyTimeoutMS:  viper.GetInt("busy-timeout-ms"),
		CacheSizeKB:    viper.GetInt("cache-size-kb"),
		JournalMode:    viper.GetString("journal-mode"),
		Synchronous:    viper.GetString("synchronous"),
		TempStore:      viper.GetString("temp-store"),
	}
	if ms := viper.GetInt("acquire-timeout-ms"); ms > 0 {
		cfg.AcquireTimeout = time.Duration(ms) * time.Millisecond
	}
	return cfg
}
