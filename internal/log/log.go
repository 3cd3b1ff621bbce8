// Package log sets up structured logging for the project. Log records are
// written through log/slog, backed by Uber's Zap logging library.
//
// Initialize() should be called once at startup, before the first logging
// statement, so that slog.Default() writes to Zap.
//
// See the Zap docs for more details: https://pkg.go.dev/go.uber.org/zap
package log

import (
	golog "log"
	"log/slog"
	"strings"

	"github.com/blendle/zapdriver"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
)

// LoggingEnv is used to represent a specific configuration used by a given
// environment.
type LoggingEnv string

// String implements the Stringer interface.
func (e LoggingEnv) String() string {
	return string(e)
}

const (
	LoggingEnvDev  LoggingEnv = "dev"
	LoggingEnvProd LoggingEnv = "prod"
)

var defaultLoggingEnv = LoggingEnvDev

// Initialize the logger for logging.
//
// An env of "prod" uses a Stackdriver compatible production configuration,
// anything else uses Zap's default development configuration. The returned
// logger is also installed as slog.Default().
func Initialize(env string) *slog.Logger {
	var err error
	var logger *zap.Logger
	switch strings.ToLower(env) {
	case LoggingEnvProd.String():
		defaultLoggingEnv = LoggingEnvProd
		config := zapdriver.NewProductionConfig()
		// Make sure sampling is disabled.
		config.Sampling = nil
		// Build the logger and ensure we use the zapdriver Core so that labels
		// are handled correctly.
		logger, err = config.Build(zapdriver.WrapCore())
	default:
		defaultLoggingEnv = LoggingEnvDev
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		golog.Panic(err)
	}
	zap.RedirectStdLog(logger)

	slogger := slog.New(NewContextLogHandler(zapslog.NewHandler(logger.Core(), zapslog.WithCaller(true))))
	slog.SetDefault(slogger)
	return slogger
}

// Env returns the logging environment selected by the last call to Initialize.
func Env() LoggingEnv {
	return defaultLoggingEnv
}

// LabelAttr causes attributes written by zapdriver to be marked as labels inside
// StackDriver when LoggingEnv is LoggingEnvProd. Otherwise it wraps slog.String.
func LabelAttr(key, value string) slog.Attr {
	if defaultLoggingEnv == LoggingEnvProd {
		return slog.String("labels."+key, value)
	}
	return slog.String(key, value)
}
