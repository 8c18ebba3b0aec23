package redis

import (
	"SkinDetect/internal/entity"
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const StatsKey = "skindetect:stats"

type Config struct {
	Address  string
	Password string
	DB       int
}

// IRedis keeps the detection counters in a single hash.
type IRedis interface {
	IncrementStats(ctx context.Context, detections, diseasesFound int64) error
	GetStats(ctx context.Context) (*entity.DetectionStats, error)
	Ping(ctx context.Context) error
	Close() error
}

type redisClient struct {
	log    *logrus.Logger
	client *redis.Client
}

func New(log *logrus.Logger, cfg Config) IRedis {
	log.Info(fmt.Sprintf("Connecting to Redis at %s...", cfg.Address))

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return NewFromClient(log, client)
}

func NewFromClient(log *logrus.Logger, client *redis.Client) IRedis {
	r := &redisClient{log: log, client: client}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.Ping(ctx); err != nil {
		log.Error(fmt.Sprintf("Failed to connect to Redis: %v", err))
	} else {
		log.Info("Successfully connected to Redis")
	}

	return r
}

func (r *redisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *redisClient) IncrementStats(ctx context.Context, detections, diseasesFound int64) error {
	pipe := r.client.TxPipeline()
	pipe.HIncrBy(ctx, StatsKey, "total_detections", detections)
	pipe.HIncrBy(ctx, StatsKey, "total_diseases_found", diseasesFound)
	pipe.HSet(ctx, StatsKey, "updated_at", time.Now().UTC().Format(time.RFC3339Nano))

	if _, err := pipe.Exec(ctx); err != nil {
		r.log.Error(fmt.Sprintf("Error incrementing stats: %v", err))
		return err
	}

	r.log.Debug(fmt.Sprintf("Incremented stats by %d detections, %d diseases", detections, diseasesFound))
	return nil
}

// GetStats returns nil, nil when no counter has been written yet.
func (r *redisClient) GetStats(ctx context.Context) (*entity.DetectionStats, error) {
	values, err := r.client.HGetAll(ctx, StatsKey).Result()
	if errors.Is(err, redis.Nil) || (err == nil && len(values) == 0) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	stats := &entity.DetectionStats{ID: 1}
	if stats.TotalDetections, err = parseCounter(values["total_detections"]); err != nil {
		return nil, err
	}
	if stats.TotalDiseasesFound, err = parseCounter(values["total_diseases_found"]); err != nil {
		return nil, err
	}
	if ts := values["updated_at"]; ts != "" {
		if stats.UpdatedAt, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("parse updated_at: %w", err)
		}
	}

	return stats, nil
}

func parseCounter(v string) (int64, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse counter %q: %w", v, err)
	}
	return n, nil
}

func (r *redisClient) Close() error {
	return r.client.Close()
}
