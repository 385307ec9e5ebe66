package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	MinIO    MinIOConfig    `yaml:"minio"`
	Storage  StorageConfig  `yaml:"storage"`
	Camera   CameraConfig   `yaml:"camera"`
	Capture  CaptureConfig  `yaml:"capture"`
	Vision   VisionConfig   `yaml:"vision"`
	FaceDB   FaceDBConfig   `yaml:"face_db"`
	Weather  WeatherConfig  `yaml:"weather"`
	Search   SearchConfig   `yaml:"search"`
	Email    EmailConfig    `yaml:"email"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type NATSConfig struct {
	URL string `yaml:"url"`
	// Channel is the application-wide broadcast channel name. Camera events
	// are published on "<channel>.camera_states.<session_id>".
	Channel string `yaml:"channel"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// StorageConfig selects where captured frames are kept: "file" or "minio".
type StorageConfig struct {
	Backend   string `yaml:"backend"`
	FramesDir string `yaml:"frames_dir"`
}

// CameraConfig selects the camera state persistence policy: "postgres", "memory" or "none".
type CameraConfig struct {
	Persistence    string `yaml:"persistence"`
	DispatchBuffer int    `yaml:"dispatch_buffer"` // initial queue capacity; the queue grows unbounded
}

type CaptureConfig struct {
	Device            string        `yaml:"device"`       // e.g. /dev/video0, "0" on macOS, or a file/URL
	InputFormat       string        `yaml:"input_format"` // empty picks the platform default
	FrameWidth        int           `yaml:"frame_width"`
	FrameCount        int           `yaml:"frame_count"`
	Interval          time.Duration `yaml:"interval"`
	RecognizeInterval time.Duration `yaml:"recognize_interval"`
	ProbeAttempts     int           `yaml:"probe_attempts"`
	ProbeDelay        time.Duration `yaml:"probe_delay"`
	MinFaceSize       int           `yaml:"min_face_size"`
}

type VisionConfig struct {
	ModelsDir          string  `yaml:"models_dir"`
	DetectionThreshold float64 `yaml:"detection_threshold"`
	ONNXLibPath        string  `yaml:"onnx_lib_path"`
}

type FaceDBConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Token      string        `yaml:"token"`
	Collection string        `yaml:"collection"`
	Timeout    time.Duration `yaml:"timeout"`
}

type WeatherConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type SearchConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxResults int           `yaml:"max_results"`
}

type EmailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// Configured reports whether credentials are present.
func (e EmailConfig) Configured() bool {
	return e.User != "" && e.Password != ""
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
// A missing file is not an error when path is empty. Variables from a .env file
// in the working directory are loaded first if present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.NATS.Channel == "" {
		cfg.NATS.Channel = "visora_agent"
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "file"
	}
	if cfg.Storage.FramesDir == "" {
		cfg.Storage.FramesDir = "captured_frames"
	}
	if cfg.Camera.Persistence == "" {
		cfg.Camera.Persistence = "memory"
	}
	if cfg.Camera.DispatchBuffer <= 0 {
		cfg.Camera.DispatchBuffer = 64
	}
	if cfg.Capture.Device == "" {
		cfg.Capture.Device = "/dev/video0"
	}
	if cfg.Capture.FrameWidth == 0 {
		cfg.Capture.FrameWidth = 640
	}
	if cfg.Capture.FrameCount == 0 {
		cfg.Capture.FrameCount = 3
	}
	if cfg.Capture.Interval == 0 {
		cfg.Capture.Interval = time.Second
	}
	if cfg.Capture.RecognizeInterval == 0 {
		cfg.Capture.RecognizeInterval = 500 * time.Millisecond
	}
	if cfg.Capture.ProbeAttempts == 0 {
		cfg.Capture.ProbeAttempts = 10
	}
	if cfg.Capture.ProbeDelay == 0 {
		cfg.Capture.ProbeDelay = 500 * time.Millisecond
	}
	if cfg.Capture.MinFaceSize == 0 {
		cfg.Capture.MinFaceSize = 100
	}
	if cfg.Vision.DetectionThreshold == 0 {
		cfg.Vision.DetectionThreshold = 0.5
	}
	if cfg.FaceDB.BaseURL == "" {
		cfg.FaceDB.BaseURL = "https://api.luxand.cloud"
	}
	if cfg.FaceDB.Collection == "" {
		cfg.FaceDB.Collection = "VisoraAgent"
	}
	if cfg.FaceDB.Timeout == 0 {
		cfg.FaceDB.Timeout = 10 * time.Second
	}
	if cfg.Weather.BaseURL == "" {
		cfg.Weather.BaseURL = "https://wttr.in"
	}
	if cfg.Weather.Timeout == 0 {
		cfg.Weather.Timeout = 10 * time.Second
	}
	if cfg.Search.BaseURL == "" {
		cfg.Search.BaseURL = "https://api.duckduckgo.com"
	}
	if cfg.Search.Timeout == 0 {
		cfg.Search.Timeout = 10 * time.Second
	}
	if cfg.Search.MaxResults == 0 {
		cfg.Search.MaxResults = 5
	}
	if cfg.Email.Host == "" {
		cfg.Email.Host = "smtp.gmail.com"
	}
	if cfg.Email.Port == 0 {
		cfg.Email.Port = 587
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VISORA_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("VISORA_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("VISORA_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("VISORA_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("VISORA_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("VISORA_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("VISORA_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("VISORA_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("VISORA_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("VISORA_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("VISORA_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("VISORA_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("VISORA_CAMERA_PERSISTENCE"); v != "" {
		cfg.Camera.Persistence = v
	}
	if v := os.Getenv("VISORA_CAPTURE_DEVICE"); v != "" {
		cfg.Capture.Device = v
	}
	if v := os.Getenv("VISORA_MODELS_DIR"); v != "" {
		cfg.Vision.ModelsDir = v
	}
	if v := os.Getenv("LUXAND_API_TOKEN"); v != "" {
		cfg.FaceDB.Token = v
	}
	if v := os.Getenv("LUXAND_BASE_URL"); v != "" {
		cfg.FaceDB.BaseURL = v
	}
	if v := os.Getenv("GMAIL_USER"); v != "" {
		cfg.Email.User = v
	}
	if v := os.Getenv("GMAIL_APP_PASSWORD"); v != "" {
		cfg.Email.Password = v
	}
}
