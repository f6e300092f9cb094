package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"expensetracker/internal/amqp"
	"expensetracker/internal/auth"
	"expensetracker/internal/log"
	"expensetracker/internal/ports"
	"expensetracker/internal/ports/memory"
	"expensetracker/internal/ports/remote"
	"expensetracker/internal/services"
	"expensetracker/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Nop()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case RemoteBackend:
		return f.createRemoteBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	sqliteRepo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, storage.WithLogger(f.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	authService, err := f.localAuth(sqliteRepo, config)
	if err != nil {
		sqliteRepo.Close()
		return nil, err
	}
	expenseService := f.expenseService(sqliteRepo, config)

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", config.AMQPURL != "")

	return &BackendResult{
		Type:        SQLiteBackend,
		Expenses:    expenseService,
		Categories:  sqliteRepo,
		Auth:        authService,
		AuthService: authService,
		Cleanup: func() error {
			return errors.Join(expenseService.Close(), sqliteRepo.Close())
		},
	}, nil
}

func (f *DefaultFactory) createRemoteBackend(config Config) (*BackendResult, error) {
	opts := []remote.Option{
		remote.WithLogger(f.logger),
		remote.WithCategoryTTL(config.CategoryCacheTTL),
	}
	if config.RequestTimeout > 0 {
		opts = append(opts, remote.WithTimeout(config.RequestTimeout))
	}
	client, err := remote.New(config.APIBaseURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize API client: %w", err)
	}

	expenseService := f.expenseService(client, config)

	f.logger.Info("Initialized remote backend", "api_base_url", config.APIBaseURL)

	return &BackendResult{
		Type:       RemoteBackend,
		Expenses:   expenseService,
		Categories: client,
		Auth:       client,
		Remote:     client,
		Cleanup:    expenseService.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	var opts []memory.Option
	if config.MockLatency > 0 {
		opts = append(opts, memory.WithLatency(config.MockLatency, config.MockLatency*5/3))
	}
	if config.DemoPassword != "" {
		hash, err := auth.HashPassword(config.DemoPassword)
		if err != nil {
			return nil, fmt.Errorf("hash demo password: %w", err)
		}
		opts = append(opts, memory.WithDemoPassword(hash))
	}
	store := memory.New(opts...)

	authService, err := f.localAuth(store, config)
	if err != nil {
		return nil, err
	}
	expenseService := f.expenseService(store, config)

	f.logger.Info("Initialized memory backend",
		"latency", config.MockLatency.String(),
		"demo_login", config.DemoPassword != "")

	return &BackendResult{
		Type:        MemoryBackend,
		Expenses:    expenseService,
		Categories:  store,
		Auth:        authService,
		AuthService: authService,
		Cleanup:     expenseService.Close,
	}, nil
}

func (f *DefaultFactory) localAuth(users ports.UserRepository, config Config) (*services.AuthService, error) {
	secret := config.JWTSecret
	switch {
	case secret != "":
	case config.SecretFile != "":
		var err error
		secret, err = auth.LoadOrCreateSecret(config.SecretFile)
		if err != nil {
			return nil, err
		}
	default:
		f.logger.Warn("JWT_SECRET not set, using a random secret; tokens will not survive a restart")
		secret = uuid.NewString() + uuid.NewString()
	}
	tokens, err := auth.NewTokenManager(secret, config.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token manager: %w", err)
	}
	return services.NewAuthService(users, tokens, f.logger), nil
}

// expenseService wires the optional AMQP publisher. A broker that cannot be
// reached leaves the backend usable without events.
func (f *DefaultFactory) expenseService(repo ports.ExpenseRepository, config Config) *services.ExpenseService {
	var opts []services.ExpenseOption
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			opts = append(opts, services.WithPublisher(client))
		}
	}
	return services.NewExpenseService(repo, f.logger, opts...)
}
