// Package logging wraps logrus the way the service layer's pkg/logger does:
// a configurable level/format/output, with a package-level default used by
// components (drivers, tunnel manager, brokerage) that are not handed a
// logger explicitly.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus.Logger.
type Logger struct {
	*logrus.Logger
}

// Config controls level, format, and destination.
type Config struct {
	Level      string `mapstructure:"level" env:"LOG_LEVEL"`
	Format     string `mapstructure:"format" env:"LOG_FORMAT"`
	Output     string `mapstructure:"output" env:"LOG_OUTPUT"`
	FilePrefix string `mapstructure:"file_prefix" env:"LOG_FILE_PREFIX"`
}

// sensitiveFields lists the structured-log keys that must never reach an
// output sink with their real value, mirroring the closed secret-key set
// secrets.AllKeys enumerates (password, ssh_password, ssh_passphrase,
// aws_secret_key, credentials_json). Kept as a local literal rather than an
// import of internal/secrets, which already imports this package.
var sensitiveFields = map[string]struct{}{
	"password":         {},
	"ssh_password":     {},
	"ssh_passphrase":   {},
	"aws_secret_key":   {},
	"credentials_json": {},
}

// redactHook blanks any sensitive field value before an entry is formatted,
// so a driver or the secret resolver logging a ConnectionConfig's fields
// in the course of an error message can never leak a credential into a log
// file or stdout.
type redactHook struct{}

func (redactHook) Levels() []logrus.Level { return logrus.AllLevels }

func (redactHook) Fire(entry *logrus.Entry) error {
	for key := range entry.Data {
		if _, sensitive := sensitiveFields[key]; sensitive {
			entry.Data[key] = "[redacted]"
		}
	}
	return nil
}

// New builds a Logger from cfg.
func New(cfg Config) *Logger {
	logger := logrus.New()
	logger.AddHook(redactHook{})

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	logger.SetOutput(resolveOutput(logger, cfg))

	return &Logger{Logger: logger}
}

// resolveOutput picks stdout, a prefixed file under ./logs, or both
// (file output still mirrors to stdout so a foreground queryarkd run stays
// visible), falling back to stdout alone on any filesystem error.
func resolveOutput(logger *logrus.Logger, cfg Config) io.Writer {
	if strings.ToLower(cfg.Output) != "file" {
		return os.Stdout
	}

	prefix := cfg.FilePrefix
	if prefix == "" {
		prefix = "queryarkd"
	}
	if err := os.MkdirAll("logs", 0o755); err != nil {
		logger.Errorf("failed to create logs directory, falling back to stdout: %v", err)
		return os.Stdout
	}
	path := filepath.Join("logs", prefix+".log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger.Errorf("failed to open log file %s, falling back to stdout: %v", path, err)
		return os.Stdout
	}
	return io.MultiWriter(os.Stdout, file)
}

// NewDefault returns a stdout text logger at info level, named by component.
func NewDefault(component string) *Logger {
	logger := logrus.New()
	logger.AddHook(redactHook{})
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetOutput(os.Stdout)
	return &Logger{Logger: logger}
}

func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.Logger.WithField(key, value)
}

func (l *Logger) WithFields(fields logrus.Fields) *logrus.Entry {
	return l.Logger.WithFields(fields)
}

// WithConnection scopes a log line to a connection id (matching the
// connection registry's own key space); the tunnel manager and the command
// surface use it.
func (l *Logger) WithConnection(connectionID string) *logrus.Entry {
	return l.Logger.WithField("connection_id", connectionID)
}

// WithQuery scopes a log line to both a connection and an in-flight query
// id, the pair the cancellation registry and brokerage pass around together
// (§4.5, §4.7(b)).
func (l *Logger) WithQuery(connectionID, queryID string) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields{"connection_id": connectionID, "query_id": queryID})
}

// Default is the package-wide logger used by components constructed without
// an explicit Logger (drivers, tunnel manager, brokerage helpers).
var Default = NewDefault("queryark")
