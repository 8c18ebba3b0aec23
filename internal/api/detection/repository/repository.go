package detectionRepository

import (
	"SkinDetect/internal/entity"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type SQLExecutor interface {
	sqlx.ExtContext
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
	Rebind(query string) string
}

func New(db *sqlx.DB, log *logrus.Logger) Repository {
	return &repository{
		DB:  db,
		log: log,
	}
}

type repository struct {
	DB  *sqlx.DB
	log *logrus.Logger
}

type Repository interface {
	NewClient(tx bool) (Client, error)
	Ping(ctx context.Context) error
}

func (r *repository) Ping(ctx context.Context) error {
	return r.DB.PingContext(ctx)
}

func (r *repository) NewClient(tx bool) (Client, error) {
	var sqlExecutor SQLExecutor
	var commitFunc, rollbackFunc func() error

	sqlExecutor = r.DB

	if tx {
		txx, err := r.DB.Beginx()
		if err != nil {
			return Client{}, err
		}

		sqlExecutor = txx
		commitFunc = txx.Commit
		rollbackFunc = txx.Rollback
	} else {
		commitFunc = func() error { return nil }
		rollbackFunc = func() error { return nil }
	}

	driver := r.DB.DriverName()

	return Client{
		History:  &historyRepository{q: sqlExecutor, log: r.log, driver: driver},
		Stats:    &statsRepository{q: sqlExecutor, log: r.log},
		Commit:   commitFunc,
		Rollback: rollbackFunc,
	}, nil
}

type Client struct {
	History interface {
		CreateHistory(ctx context.Context, imageData []byte, results []byte, createdAt time.Time) (int64, error)
		GetRecentHistory(ctx context.Context, limit int) ([]entity.HistoryEntry, error)
	}

	Stats interface {
		IncrementStats(ctx context.Context, diseasesFound int) error
		GetStats(ctx context.Context) (*entity.DetectionStats, error)
	}

	Commit   func() error
	Rollback func() error
}

type historyRepository struct {
	q      SQLExecutor
	log    *logrus.Logger
	driver string
}

type statsRepository struct {
	q   SQLExecutor
	log *logrus.Logger
}
