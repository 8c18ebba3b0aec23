package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	StorageSQL   = "sql"
	StorageFiles = "files"
	StorageNone  = "none"

	StatsSQL   = "sql"
	StatsRedis = "redis"
)

// Env is the process configuration, read from the environment (and .env)
// with defaults for every key.
type Env struct {
	AppPort        string        `mapstructure:"APP_PORT"`
	AppEnv         string        `mapstructure:"APP_ENV"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	MaxImageSize   int64         `mapstructure:"MAX_IMAGE_SIZE"`
	BodyLimit      int           `mapstructure:"BODY_LIMIT"`
	RateLimit      float64       `mapstructure:"RATE_LIMIT"`
	RateBurst      int           `mapstructure:"RATE_BURST"`

	DetectorStrategy      string  `mapstructure:"DETECTOR_STRATEGY"`
	SimulationProbability float64 `mapstructure:"SIMULATION_PROBABILITY"`
	CatalogPath           string  `mapstructure:"CATALOG_PATH"`

	ModelBackend      string  `mapstructure:"MODEL_BACKEND"`
	ModelPath         string  `mapstructure:"MODEL_PATH"`
	ModelMetadataPath string  `mapstructure:"MODEL_METADATA_PATH"`
	ModelConfigPath   string  `mapstructure:"MODEL_CONFIG_PATH"`
	OnnxRuntimeLib    string  `mapstructure:"ONNXRUNTIME_LIB"`
	OnnxCandidateConf float64 `mapstructure:"ONNX_CANDIDATE_CONF"`
	OnnxIoU           float64 `mapstructure:"ONNX_IOU"`
	InferenceWSURL    string  `mapstructure:"INFERENCE_WS_URL"`
	GeminiAPIKey      string  `mapstructure:"GEMINI_API_KEY"`
	GeminiModelName   string  `mapstructure:"GEMINI_MODEL_NAME"`
	MinConfDetection  float64 `mapstructure:"YOLO_MIN_CONF_DET"`
	MinConfClassify   float64 `mapstructure:"YOLO_MIN_CONF_CLS"`

	Storage       string `mapstructure:"STORAGE"`
	SaveDir       string `mapstructure:"YOLO_SAVE_DIR"`
	ArtifactStore string `mapstructure:"ARTIFACT_STORE"`

	AWSRegion          string `mapstructure:"AWS_REGION"`
	AWSAccessKeyID     string `mapstructure:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `mapstructure:"AWS_SECRET_ACCESS_KEY"`
	AWSBucketName      string `mapstructure:"AWS_BUCKET_NAME"`

	DBDriver         string        `mapstructure:"DB_DRIVER"`
	DBHost           string        `mapstructure:"DB_HOST"`
	DBUser           string        `mapstructure:"DB_USER"`
	DBPassword       string        `mapstructure:"DB_PASSWORD"`
	DBName           string        `mapstructure:"DB_NAME"`
	DBPort           int           `mapstructure:"DB_PORT"`
	DBConnectTimeout time.Duration `mapstructure:"DB_CONNECT_TIMEOUT"`

	StatsBackend  string `mapstructure:"STATS_BACKEND"`
	RedisAddress  string `mapstructure:"REDIS_ADDRESS"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
}

func LoadEnv() (*Env, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	var env Env
	if err := v.Unmarshal(&env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal env: %w", err)
	}

	if err := env.Validate(); err != nil {
		return nil, err
	}

	return &env, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "7000")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "debug")
	v.SetDefault("REQUEST_TIMEOUT", 30*time.Second)
	v.SetDefault("MAX_IMAGE_SIZE", 10*1024*1024)
	v.SetDefault("BODY_LIMIT", 50*1024*1024)
	v.SetDefault("RATE_LIMIT", 50)
	v.SetDefault("RATE_BURST", 100)

	v.SetDefault("DETECTOR_STRATEGY", "model")
	v.SetDefault("SIMULATION_PROBABILITY", 0.7)
	v.SetDefault("CATALOG_PATH", "")

	v.SetDefault("MODEL_BACKEND", "onnx")
	v.SetDefault("MODEL_PATH", "./yolomodelbest3.onnx")
	v.SetDefault("MODEL_METADATA_PATH", "./yolomodelbest3.json")
	v.SetDefault("MODEL_CONFIG_PATH", "")
	v.SetDefault("ONNXRUNTIME_LIB", "")
	v.SetDefault("ONNX_CANDIDATE_CONF", 0.25)
	v.SetDefault("ONNX_IOU", 0.7)
	v.SetDefault("INFERENCE_WS_URL", "ws://localhost:8000/api/v1/skin/ws")
	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("GEMINI_MODEL_NAME", "gemini-1.5-flash")
	v.SetDefault("YOLO_MIN_CONF_DET", 0.30)
	v.SetDefault("YOLO_MIN_CONF_CLS", 0.30)

	v.SetDefault("STORAGE", StorageFiles)
	v.SetDefault("YOLO_SAVE_DIR", "./detections")
	v.SetDefault("ARTIFACT_STORE", "local")

	v.SetDefault("AWS_REGION", "")
	v.SetDefault("AWS_ACCESS_KEY_ID", "")
	v.SetDefault("AWS_SECRET_ACCESS_KEY", "")
	v.SetDefault("AWS_BUCKET_NAME", "")

	v.SetDefault("DB_DRIVER", "mysql")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_USER", "root")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "skindetect_db")
	v.SetDefault("DB_PORT", 3306)
	v.SetDefault("DB_CONNECT_TIMEOUT", 10*time.Second)

	v.SetDefault("STATS_BACKEND", StatsSQL)
	v.SetDefault("REDIS_ADDRESS", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
}

// Validate rejects unknown values for the enumerated keys.
func (e *Env) Validate() error {
	checks := []struct {
		key     string
		value   string
		allowed []string
	}{
		{"DETECTOR_STRATEGY", e.DetectorStrategy, []string{"simulated", "model"}},
		{"MODEL_BACKEND", e.ModelBackend, []string{"onnx", "remote", "gemini", "opencv"}},
		{"STORAGE", e.Storage, []string{StorageSQL, StorageFiles, StorageNone}},
		{"ARTIFACT_STORE", e.ArtifactStore, []string{"local", "s3"}},
		{"DB_DRIVER", e.DBDriver, []string{"mysql", "postgres", "sqlite3"}},
		{"STATS_BACKEND", e.StatsBackend, []string{StatsSQL, StatsRedis}},
	}

	for _, c := range checks {
		if !contains(c.allowed, c.value) {
			return fmt.Errorf("invalid %s %q, expected one of %v", c.key, c.value, c.allowed)
		}
	}

	if e.SimulationProbability < 0 || e.SimulationProbability > 1 {
		return fmt.Errorf("invalid SIMULATION_PROBABILITY %v, expected a value in [0,1]", e.SimulationProbability)
	}

	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
