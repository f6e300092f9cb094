package backend

import (
	"fmt"
	"path/filepath"

	"expensetracker/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: backendType,

		SQLiteDBPath: appConfig.SQLiteDBPath,

		APIBaseURL:       appConfig.APIBaseURL,
		RequestTimeout:   appConfig.RequestTimeout,
		CategoryCacheTTL: appConfig.CategoryCacheTTL,

		MockLatency:  appConfig.MockLatency,
		DemoPassword: appConfig.DemoPassword,

		JWTSecret:  appConfig.JWTSecret,
		TokenTTL:   appConfig.TokenTTL,
		SecretFile: secretFile(appConfig.SessionDir),

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case RemoteBackend:
		if c.APIBaseURL == "" {
			return fmt.Errorf("API base URL is required for remote backend")
		}
	case MemoryBackend:
		// The demo account stays locked without a password.
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, RemoteBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	strings := make([]string, len(types))
	for i, t := range types {
		strings[i] = t.String()
	}
	return strings
}

func secretFile(sessionDir string) string {
	if sessionDir == "" {
		return ""
	}
	return filepath.Join(sessionDir, "jwt-secret")
}
