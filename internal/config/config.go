package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port                int      `yaml:"port"`
		CORSOrigins         []string `yaml:"corsOrigins"`
		ReadTimeoutSeconds  int      `yaml:"readTimeoutSeconds"`
		WriteTimeoutSeconds int      `yaml:"writeTimeoutSeconds"`
	} `yaml:"server"`

	Storage struct {
		// Backend is one of disk, memory, minio, gcs.
		Backend string `yaml:"backend"`
		Dir     string `yaml:"dir"`

		Minio struct {
			Endpoint   string `yaml:"endpoint"`
			AccessKey  string `yaml:"accessKey"`
			SecretKey  string `yaml:"secretKey"`
			BucketName string `yaml:"bucketName"`
			Region     string `yaml:"region"`
			Prefix     string `yaml:"prefix"`
			UseSSL     bool   `yaml:"useSSL"`
		} `yaml:"minio"`

		GCS struct {
			Bucket string `yaml:"bucket"`
			Prefix string `yaml:"prefix"`
		} `yaml:"gcs"`
	} `yaml:"storage"`

	QA struct {
		// Provider is one of gemini, openai, vertex.
		Provider       string `yaml:"provider"`
		Model          string `yaml:"model"`
		Endpoint       string `yaml:"endpoint"`
		APIKey         string `yaml:"apiKey"`
		BaseURL        string `yaml:"baseURL"`
		AnswerMode     string `yaml:"answerMode"`
		TimeoutSeconds int    `yaml:"timeoutSeconds"`

		Vertex struct {
			ProjectID string `yaml:"projectID"`
			Region    string `yaml:"region"`
		} `yaml:"vertex"`
	} `yaml:"qa"`

	Ask struct {
		Concurrency int  `yaml:"concurrency"`
		FailFast    bool `yaml:"failFast"`
	} `yaml:"ask"`

	RateLimit struct {
		Capacity   int `yaml:"capacity"`
		RefillRate int `yaml:"refillRate"`
	} `yaml:"rateLimit"`
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	var cfg Config
	cfg.Server.Port = 3001
	cfg.Server.CORSOrigins = []string{"*"}
	cfg.Server.ReadTimeoutSeconds = 15
	cfg.Server.WriteTimeoutSeconds = 120
	cfg.Storage.Backend = "disk"
	cfg.Storage.Dir = "uploads"
	cfg.QA.Provider = "gemini"
	cfg.QA.Model = "gemini-1.5-flash"
	cfg.QA.AnswerMode = "extract"
	cfg.Ask.Concurrency = 1
	cfg.Ask.FailFast = true
	return &cfg
}

// Load reads a YAML file over the defaults. A missing file is not an error.
// GEMINI_API_KEY, when set, replaces qa.apiKey.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.QA.APIKey = v
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}

	switch c.Storage.Backend {
	case "disk":
		if c.Storage.Dir == "" {
			return errors.New("storage.dir is required for the disk backend")
		}
	case "memory":
	case "minio":
		if c.Storage.Minio.Endpoint == "" || c.Storage.Minio.BucketName == "" {
			return errors.New("storage.minio.endpoint and bucketName are required")
		}
	case "gcs":
		if c.Storage.GCS.Bucket == "" {
			return errors.New("storage.gcs.bucket is required")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}

	switch c.QA.Provider {
	case "gemini", "openai":
		if strings.TrimSpace(c.QA.APIKey) == "" {
			return fmt.Errorf("qa.apiKey (or GEMINI_API_KEY) is required for provider %s", c.QA.Provider)
		}
	case "vertex":
		if c.QA.Vertex.ProjectID == "" || c.QA.Vertex.Region == "" {
			return errors.New("qa.vertex.projectID and region are required")
		}
	default:
		return fmt.Errorf("unknown qa.provider %q", c.QA.Provider)
	}

	switch c.QA.AnswerMode {
	case "extract", "raw":
	default:
		return fmt.Errorf("unknown qa.answerMode %q", c.QA.AnswerMode)
	}

	if c.QA.TimeoutSeconds < 0 {
		return errors.New("qa.timeoutSeconds must not be negative")
	}
	if c.Ask.Concurrency < 1 {
		return errors.New("ask.concurrency must be at least 1")
	}
	if c.RateLimit.Capacity < 0 || c.RateLimit.RefillRate < 0 {
		return errors.New("rateLimit values must not be negative")
	}
	if c.RateLimit.Capacity > 0 && c.RateLimit.RefillRate == 0 {
		return errors.New("rateLimit.refillRate is required when capacity is set")
	}
	return nil
}

// QATimeout is the outbound call timeout; zero means none.
func (c *Config) QATimeout() time.Duration {
	return time.Duration(c.QA.TimeoutSeconds) * time.Second
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
