package main

import (
	"SkinDetect/database/sqldb"
	detectionRepository "SkinDetect/internal/api/detection/repository"
	detectionService "SkinDetect/internal/api/detection/service"
	"SkinDetect/internal/config"
	"SkinDetect/pkg/detector"
	"SkinDetect/pkg/inference"
	"SkinDetect/pkg/redis"
	"SkinDetect/pkg/s3"
	"SkinDetect/pkg/storage"
	"SkinDetect/pkg/utils"
	"context"
	"io"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// buildDetector picks the strategy named by DETECTOR_STRATEGY. A model backend
// that fails to load leaves the model strategy without a backend.
func buildDetector(ctx context.Context, logger *logrus.Logger, env *config.Env) (detector.Detector, io.Closer) {
	if env.DetectorStrategy == detector.StrategySimulated {
		catalog := loadCatalog(logger, env, detector.SimulationCatalog())
		return detector.NewSimulated(logger, catalog, detector.WithDetectProbability(env.SimulationProbability)), nil
	}

	catalog := loadCatalog(logger, env, detector.ModelCatalog())

	backend, closer, err := inference.Load(ctx, logger, inference.Config{
		Backend:         env.ModelBackend,
		ModelPath:       env.ModelPath,
		MetadataPath:    env.ModelMetadataPath,
		ConfigPath:      env.ModelConfigPath,
		SharedLibPath:   env.OnnxRuntimeLib,
		CandidateConf:   env.OnnxCandidateConf,
		IoU:             env.OnnxIoU,
		InferenceURL:    env.InferenceWSURL,
		GeminiAPIKey:    env.GeminiAPIKey,
		GeminiModelName: env.GeminiModelName,
		Classes:         catalog.Labels(),
	})
	if err != nil {
		logger.WithFields(logrus.Fields{
			"backend": env.ModelBackend,
			"path":    env.ModelPath,
			"error":   err.Error(),
		}).Error("Failed to load model backend")
		backend, closer = nil, nil
	}

	return detector.NewModel(logger, backend, catalog, detector.ModelConfig{
		MinConfDetection:      env.MinConfDetection,
		MinConfClassification: env.MinConfClassify,
		ModelPath:             env.ModelPath,
	}), closer
}

func loadCatalog(logger *logrus.Logger, env *config.Env, fallback *detector.Catalog) *detector.Catalog {
	if env.CatalogPath == "" {
		return fallback
	}

	catalog, err := detector.LoadCatalog(env.CatalogPath)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"path":  env.CatalogPath,
			"error": err.Error(),
		}).Fatal("Failed to load disease catalog")
	}

	return catalog
}

// openDatabase connects only when detections are stored in SQL. A failure is
// logged and leaves the server running without a database.
func openDatabase(ctx context.Context, logger *logrus.Logger, env *config.Env) *sqlx.DB {
	if env.Storage != config.StorageSQL {
		return nil
	}

	db, err := sqldb.New(ctx, sqldb.Config{
		Driver:         env.DBDriver,
		Host:           env.DBHost,
		Port:           env.DBPort,
		User:           env.DBUser,
		Password:       env.DBPassword,
		Name:           env.DBName,
		ConnectTimeout: env.DBConnectTimeout,
	})
	if err != nil {
		logger.WithFields(logrus.Fields{
			"driver": env.DBDriver,
			"host":   env.DBHost,
			"error":  err.Error(),
		}).Error("Failed to connect to database")
		return nil
	}

	tables, err := sqldb.ListTables(ctx, db)
	if err != nil {
		logger.Warnf("Failed to list tables: %v", err)
	} else {
		logger.WithFields(logrus.Fields{
			"driver": env.DBDriver,
			"tables": tables,
		}).Debug("Database ready")
	}

	return db
}

func buildRecorder(logger *logrus.Logger, env *config.Env, db *sqlx.DB) detectionService.Recorder {
	switch env.Storage {
	case config.StorageNone:
		return detectionService.NewDisabledRecorder(utils.New(env.MaxImageSize))

	case config.StorageSQL:
		if db == nil {
			return detectionService.NewUnavailableRecorder(nil)
		}
		return detectionService.NewSQLRecorder(logger, detectionRepository.New(db, logger), env.StatsBackend == config.StatsSQL)

	default:
		store, err := artifactStore(env)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"store": env.ArtifactStore,
				"error": err.Error(),
			}).Error("Failed to open artifact store")
			return detectionService.NewUnavailableRecorder(err)
		}
		return detectionService.NewFileRecorder(logger, store)
	}
}

func artifactStore(env *config.Env) (storage.IArtifactStore, error) {
	if env.ArtifactStore == storage.KindS3 {
		client, err := s3.New(s3.Config{
			Region:          env.AWSRegion,
			AccessKeyID:     env.AWSAccessKeyID,
			SecretAccessKey: env.AWSSecretAccessKey,
			BucketName:      env.AWSBucketName,
			Prefix:          "detections",
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	return storage.NewLocal(env.SaveDir)
}

func buildStatsCounter(logger *logrus.Logger, env *config.Env) redis.IRedis {
	if env.StatsBackend != config.StatsRedis {
		return nil
	}

	return redis.New(logger, redis.Config{
		Address:  env.RedisAddress,
		Password: env.RedisPassword,
		DB:       env.RedisDB,
	})
}
