package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type Options struct {
	Level  string
	Format string
	Output io.Writer
}

// New builds the process logger. LOG_LEVEL and LOG_FORMAT override the
// configured values so operators can raise verbosity without editing config.
func New(opts Options) *logrus.Logger {
	log := logrus.New()

	levelName := opts.Level
	if v, ok := os.LookupEnv("LOG_LEVEL"); ok {
		levelName = v
	}
	level, err := logrus.ParseLevel(strings.TrimSpace(levelName))
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	format := opts.Format
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		format = v
	}
	if strings.ToLower(strings.TrimSpace(format)) == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if opts.Output != nil {
		log.SetOutput(opts.Output)
	} else {
		log.SetOutput(os.Stdout)
	}
	return log
}

// Discard returns a logger that drops everything; tests use it as the default.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
