package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/teteocan/aurora-admin/config"
	"github.com/teteocan/aurora-admin/identity"
	"github.com/teteocan/aurora-admin/identity/firebase"
	"github.com/teteocan/aurora-admin/identity/local"
	"github.com/teteocan/aurora-admin/internal/observability"
	"github.com/teteocan/aurora-admin/middleware"
	"github.com/teteocan/aurora-admin/repositories"
	"github.com/teteocan/aurora-admin/repositories/cached"
	"github.com/teteocan/aurora-admin/repositories/memory"
	"github.com/teteocan/aurora-admin/repositories/postgres"
	"github.com/teteocan/aurora-admin/services/admin"
	"github.com/teteocan/aurora-admin/services/audit"
	"github.com/teteocan/aurora-admin/services/bankinfo"
	"go.uber.org/zap"
)

// auditDrainTimeout bounds how long Close waits for queued audit entries
const auditDrainTimeout = 5 * time.Second

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config  *config.Config
	DB      *postgres.DB // nil with the memory storage driver
	Logger  *zap.Logger
	Metrics *observability.Metrics

	// Repository Factory (postgres driver only)
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	AdminRecords repositories.AdminRecordRepository
	AuditLogs    repositories.AuditRepository
	BankInfo     repositories.BankInfoRepository
	TxManager    repositories.TransactionManager

	// Identity
	Identity identity.Provider
	// LocalIdentity is set when the local driver is used; it backs the dev token endpoint
	LocalIdentity *local.Provider

	// Services
	Audit        *audit.AuditService
	AdminManager *admin.Manager
	BankInfoSvc  *bankinfo.Service

	// HTTP
	AuthMiddleware *middleware.AuthMiddleware
}

// NewDependencies creates and wires up all application dependencies.
// A nil registry gets a fresh one.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger, reg *prometheus.Registry) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	metrics, err := observability.NewMetrics(reg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	deps.Metrics = metrics

	if err := deps.initStorage(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := deps.initIdentity(ctx, cfg); err != nil {
		deps.closeStorage()
		return nil, fmt.Errorf("failed to initialize identity provider: %w", err)
	}

	if err := deps.initServices(cfg); err != nil {
		deps.closeStorage()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	logger.Info("all dependencies initialized successfully",
		zap.String("storage", cfg.Storage.Driver),
		zap.String("identity", cfg.Identity.Driver))
	return deps, nil
}

// initStorage opens PostgreSQL or builds the in-memory stores
func (d *Dependencies) initStorage(ctx context.Context, cfg *config.Config) error {
	var repos *repositories.Repositories

	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		repos = memory.NewRepositories()
		d.TxManager = memory.TransactionManager{}
		d.Logger.Warn("using in-memory storage; records are lost on restart")

	default:
		factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
		if err != nil {
			return fmt.Errorf("failed to create repository factory: %w", err)
		}
		d.RepoFactory = factory
		d.DB = factory.GetDB()

		if err := d.DB.PingContext(ctx); err != nil {
			_ = factory.Close()
			return fmt.Errorf("database ping failed: %w", err)
		}
		if err := factory.InitSchema(ctx); err != nil {
			_ = factory.Close()
			return fmt.Errorf("failed to initialize schema: %w", err)
		}

		repos = factory.NewRepositories()
		d.TxManager = factory.GetTransactionManager()
	}

	d.AdminRecords = repos.AdminRecords
	if cfg.Cache.AdminRecordTTL > 0 {
		d.AdminRecords = cached.NewAdminRecords(repos.AdminRecords, cfg.Cache.AdminRecordTTL)
	}
	d.AuditLogs = repos.AuditLogs
	d.BankInfo = repos.BankInfo

	d.Logger.Info("repositories initialized")
	return nil
}

// initIdentity builds the configured identity provider
func (d *Dependencies) initIdentity(ctx context.Context, cfg *config.Config) error {
	switch cfg.Identity.Driver {
	case config.IdentityDriverLocal:
		provider, err := local.New(local.Config{
			Secret:   []byte(cfg.Identity.LocalSecret),
			TokenTTL: cfg.Identity.LocalTokenTTL,
		})
		if err != nil {
			return err
		}
		if cfg.Identity.LocalSeedFile != "" {
			users, err := local.LoadSeedFile(cfg.Identity.LocalSeedFile)
			if err != nil {
				return err
			}
			if err := provider.Seed(users); err != nil {
				return err
			}
			d.Logger.Info("local identity provider seeded", zap.Int("users", len(users)))
		}
		d.Identity = provider
		d.LocalIdentity = provider
		d.Logger.Warn("using local identity provider; not for production use")

	default:
		provider, err := firebase.New(ctx, firebase.Config{
			ProjectID:       cfg.Identity.FirebaseProjectID,
			CredentialsFile: cfg.Identity.FirebaseCredentialsFile,
			EmulatorHost:    cfg.Identity.FirebaseAuthEmulatorHost,
		}, d.Logger)
		if err != nil {
			return err
		}
		d.Identity = provider
		d.Logger.Info("firebase identity provider initialized",
			zap.String("project_id", cfg.Identity.FirebaseProjectID))
	}
	return nil
}

// initServices wires the audit pipeline, the claim manager and the bank info service
func (d *Dependencies) initServices(cfg *config.Config) error {
	d.Audit = audit.NewAuditService(d.AuditLogs, d.Logger, audit.Config{
		BufferSize:  cfg.Audit.BufferSize,
		WorkerCount: cfg.Audit.WorkerCount,
	})
	if err := d.Audit.Start(); err != nil {
		return fmt.Errorf("failed to start audit service: %w", err)
	}

	d.AdminManager = admin.NewManager(d.Identity, d.AdminRecords, d.Audit, d.Metrics, d.Logger, admin.Config{
		IdentityTimeout: cfg.Identity.Timeout,
	})
	d.BankInfoSvc = bankinfo.NewService(d.BankInfo, d.TxManager, d.Audit, d.Metrics, d.Logger)
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.AdminManager, d.Metrics, d.Logger)

	d.Logger.Info("services initialized")
	return nil
}

// SQLDB returns the main connection pool for health checks, or nil with the memory driver
func (d *Dependencies) SQLDB() *sql.DB {
	if d.DB == nil {
		return nil
	}
	return d.DB.DB
}

// AuditSQLDB returns the separate audit connection pool, or nil when there is none
func (d *Dependencies) AuditSQLDB() *sql.DB {
	if d.RepoFactory == nil || d.RepoFactory.GetAuditDB() == nil {
		return nil
	}
	return d.RepoFactory.GetAuditDB().DB
}

func (d *Dependencies) closeStorage() {
	if d.RepoFactory != nil {
		_ = d.RepoFactory.Close()
	}
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	// drain queued audit entries before the database goes away
	if d.Audit != nil {
		timeout := auditDrainTimeout
		if deadline, ok := ctx.Deadline(); ok {
			timeout = time.Until(deadline)
		}
		if err := d.Audit.Stop(timeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop audit service: %w", err))
		}
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
