// Package logging sets up structured logging for the risk engine: logrus
// with optional JSON output and lumberjack file rotation, plus per-component
// child loggers.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds logger configuration.
type Config struct {
	Level      string `json:"level" yaml:"level"`           // debug, info, warn, error
	Format     string `json:"format" yaml:"format"`         // text or json
	Output     string `json:"output" yaml:"output"`         // stdout, file, both
	Directory  string `json:"directory" yaml:"directory"`   // log directory for file output
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `json:"compress" yaml:"compress"`
}

// Logger wraps a logrus entry carrying a component field.
type Logger struct {
	*logrus.Entry
}

var global = defaultLogger()

func defaultLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	l.SetOutput(os.Stdout)
	return l
}

// Init configures the global logger. Safe to skip; the default logs text to
// stdout at info level.
func Init(cfg Config) error {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	global.SetLevel(level)

	if cfg.Format == "json" {
		global.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		global.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}

	switch cfg.Output {
	case "file":
		w, err := fileWriter(cfg)
		if err != nil {
			return err
		}
		global.SetOutput(w)
	case "both":
		w, err := fileWriter(cfg)
		if err != nil {
			return err
		}
		global.SetOutput(io.MultiWriter(os.Stdout, w))
	default:
		global.SetOutput(os.Stdout)
	}
	return nil
}

func fileWriter(cfg Config) (io.Writer, error) {
	dir := cfg.Directory
	if dir == "" {
		dir = "./logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, "riskgate.log"),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}, nil
}

// NewComponentLogger returns a child logger tagged with a component field.
func NewComponentLogger(component string) *Logger {
	return &Logger{Entry: global.WithField("component", component)}
}

// WithField returns a logger with an extra structured field.
func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{Entry: l.Entry.WithField(key, value)}
}

// WithFields returns a logger with extra structured fields.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	return &Logger{Entry: l.Entry.WithFields(fields)}
}
