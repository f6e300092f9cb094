package backend

import (
	"context"
	"time"

	"expensetracker/internal/ports"
	"expensetracker/internal/ports/remote"
	"expensetracker/internal/services"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult carries the repositories and services of one backend.
// AuthService is set for the local backends (memory, sqlite) and Remote for
// the HTTP-backed one.
type BackendResult struct {
	Type        BackendType
	Expenses    *services.ExpenseService
	Categories  ports.CategoryRepository
	Auth        ports.Authenticator
	AuthService *services.AuthService
	Remote      *remote.Client
	Cleanup     CleanupFunc
}

// Close runs Cleanup once.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	cleanup := r.Cleanup
	r.Cleanup = nil
	return cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Remote specific
	APIBaseURL       string
	RequestTimeout   time.Duration
	CategoryCacheTTL time.Duration

	// Memory specific
	MockLatency  time.Duration
	DemoPassword string

	// Local authentication
	JWTSecret string
	TokenTTL  time.Duration
	// SecretFile persists a generated secret when JWTSecret is empty.
	SecretFile string

	// Optional event publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	RemoteBackend BackendType = "remote"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, RemoteBackend:
		return true
	default:
		return false
	}
}

// IsLocal reports whether accounts are checked in-process.
func (bt BackendType) IsLocal() bool {
	return bt == MemoryBackend || bt == SQLiteBackend
}
