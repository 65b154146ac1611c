package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/choco-limpio/recicla-service/internal/repositories"
	"github.com/choco-limpio/recicla-service/internal/repositories/casdoor"
)

// PostgreSQLRepository implements the main Repository interface: profiles,
// reports and blobs in Postgres, accounts behind the Casdoor boundary.
type PostgreSQLRepository struct {
	db          *gorm.DB
	redisClient *redis.Client

	profile repositories.ProfileRepository
	report  repositories.ReportRepository
	blob    repositories.BlobRepository
	account repositories.AccountRepository
}

// RepositoryConfig holds configuration for repository initialization
type RepositoryConfig struct {
	DB            *gorm.DB
	RedisClient   *redis.Client
	CasdoorConfig casdoor.CasdoorConfig
	Mailer        casdoor.Mailer
	CodeTTL       time.Duration
	PublicBaseURL string
}

// NewPostgreSQLRepository creates a repository manager with all sub-repositories.
func NewPostgreSQLRepository(config RepositoryConfig) repositories.Repository {
	repo := &PostgreSQLRepository{
		db:          config.DB,
		redisClient: config.RedisClient,
	}

	repo.profile = NewProfilePostgreSQL(config.DB, config.RedisClient)
	repo.report = NewReportPostgreSQL(config.DB)
	repo.blob = NewBlobPostgreSQL(config.DB, config.PublicBaseURL)

	// Account repository uses Casdoor
	repo.account = casdoor.NewAccountCasdoor(config.CasdoorConfig, config.RedisClient, config.Mailer, config.CodeTTL)

	return repo
}

func (r *PostgreSQLRepository) Profile() repositories.ProfileRepository {
	return r.profile
}

func (r *PostgreSQLRepository) Report() repositories.ReportRepository {
	return r.report
}

func (r *PostgreSQLRepository) Blob() repositories.BlobRepository {
	return r.blob
}

func (r *PostgreSQLRepository) Account() repositories.AccountRepository {
	return r.account
}

// WithTransaction executes a function within a database transaction. The
// account repository is external and does not participate in transactions.
func (r *PostgreSQLRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &PostgreSQLRepository{
			db:          tx,
			redisClient: r.redisClient,
			profile:     NewProfilePostgreSQL(tx, r.redisClient),
			report:      NewReportPostgreSQL(tx),
			blob:        r.blob,
			account:     r.account,
		}
		return fn(txRepo)
	})
}

func (r *PostgreSQLRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (r *PostgreSQLRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	return sqlDB.Close()
}
