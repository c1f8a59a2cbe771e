package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	NATS    NATSConfig    `yaml:"nats"`
	MinIO   MinIOConfig   `yaml:"minio"`
	Vision  VisionConfig  `yaml:"vision"`
	Logging LoggingConfig `yaml:"logging"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type StorageConfig struct {
	// DataDir holds the JSON-backed collections (analysis history,
	// notification inboxes).
	DataDir      string `yaml:"data_dir"`
	RetentionCap int    `yaml:"retention_cap"`
	HistoryFile  string `yaml:"history_file"`
	InboxFile    string `yaml:"inbox_file"`
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type VisionConfig struct {
	ModelsDir           string  `yaml:"models_dir"`
	ModelFile           string  `yaml:"model_file"`
	LabelsFile          string  `yaml:"labels_file"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	FrameInterval       float64 `yaml:"frame_interval"` // seconds between sampled frames
	FrameWidth          int     `yaml:"frame_width"`
	WorkerCount         int     `yaml:"worker_count"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "data"
	}
	if cfg.Storage.RetentionCap == 0 {
		cfg.Storage.RetentionCap = 100
	}
	if cfg.Storage.HistoryFile == "" {
		cfg.Storage.HistoryFile = "analysis_history.json"
	}
	if cfg.Storage.InboxFile == "" {
		cfg.Storage.InboxFile = "notifications.json"
	}
	if cfg.Vision.ModelFile == "" {
		cfg.Vision.ModelFile = "logo_yolov8.onnx"
	}
	if cfg.Vision.LabelsFile == "" {
		cfg.Vision.LabelsFile = "labels.txt"
	}
	if cfg.Vision.ConfidenceThreshold == 0 {
		cfg.Vision.ConfidenceThreshold = 0.5
	}
	if cfg.Vision.FrameInterval == 0 {
		cfg.Vision.FrameInterval = 0.5
	}
	if cfg.Vision.FrameWidth == 0 {
		cfg.Vision.FrameWidth = 640
	}
	if cfg.Vision.WorkerCount == 0 {
		cfg.Vision.WorkerCount = 2
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BT_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("BT_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("BT_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("BT_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("BT_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("BT_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("BT_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("BT_MODELS_DIR"); v != "" {
		cfg.Vision.ModelsDir = v
	}
	if v := os.Getenv("BT_VISION_WORKER_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Vision.WorkerCount = n
		}
	}
	if v := os.Getenv("BT_CONFIDENCE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Vision.ConfidenceThreshold = f
		}
	}
}
