package config

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/kelseyhightower/envconfig"
)

type BaseEnv struct {
	Env      string `envconfig:"ENV" default:"local"`
	HTTPHost string `envconfig:"HTTP_HOST" default:""`
	// PORT is also read without the namespace prefix.
	HTTPPort string `envconfig:"PORT" required:"true"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"debug"`
}

type SeedEnv struct {
	SeedExamples bool   `envconfig:"SEED_EXAMPLES" default:"true"`
	SeedFile     string `envconfig:"SEED_FILE"`
}

type ChannelEnv struct {
	SendBuffer      int   `envconfig:"WS_SEND_BUFFER" default:"64"`
	MaxMessageBytes int64 `envconfig:"WS_MAX_MESSAGE_BYTES" default:"65536"`
}

type AttachmentEnv struct {
	Type    string `envconfig:"ATTACHMENT_STORAGE" default:"local"`
	BaseDir string `envconfig:"ATTACHMENT_BASE_DIR" default:".taskboard/attachments"`
	BaseURL string `envconfig:"ATTACHMENT_BASE_URL"`
	Folder  string `envconfig:"ATTACHMENT_FOLDER" default:"task_attachments"`
	// S3 settings (used when Type == "s3")
	S3Bucket    string `envconfig:"S3_BUCKET"`
	S3Prefix    string `envconfig:"S3_PREFIX" default:""`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3PublicURL string `envconfig:"S3_PUBLIC_URL"`

	UploadTmpDir   string `envconfig:"UPLOAD_TMP_DIR"`
	UploadMaxBytes int64  `envconfig:"UPLOAD_MAX_BYTES" default:"33554432"`
}

type Env struct {
	BaseEnv
	SeedEnv
	ChannelEnv
	AttachmentEnv
}

const namespace = "TASKBOARD"

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	if err := env.validate(); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	return &env, nil
}

func (e *Env) validate() error {
	switch e.AttachmentEnv.Type {
	case "local":
	case "s3":
		if e.S3Bucket == "" {
			return fmt.Errorf("TASKBOARD_S3_BUCKET is required when TASKBOARD_ATTACHMENT_STORAGE=s3")
		}
	default:
		return fmt.Errorf("unknown attachment storage %q", e.AttachmentEnv.Type)
	}
	if e.SendBuffer <= 0 {
		return fmt.Errorf("TASKBOARD_WS_SEND_BUFFER must be positive")
	}
	return nil
}

func (e *BaseEnv) Addr() string {
	return net.JoinHostPort(e.HTTPHost, e.HTTPPort)
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelDebug
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelDebug
	}
	return level
}

// AttachmentBaseURL is where locally stored attachments are served from.
func (e *Env) AttachmentBaseURL() string {
	if e.BaseURL != "" {
		return e.BaseURL
	}
	host := e.HTTPHost
	if host == "" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, e.HTTPPort) + "/attachments"
}
