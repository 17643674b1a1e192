// Package logging builds the feedcache.Logger selected by configuration.
package logging

import (
	"fmt"
	"io"
	stdslog "log/slog"
	"strings"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unkn0wn-root/feedcache"
	"github.com/unkn0wn-root/feedcache/internal/config"
	lrlog "github.com/unkn0wn-root/feedcache/log/logrus"
	slogadapter "github.com/unkn0wn-root/feedcache/log/slog"
	zaplog "github.com/unkn0wn-root/feedcache/log/zap"
)

// New returns a JSON logger writing to w and a flush func to call before
// exit.
func New(cfg config.LogConfig, w io.Writer, component string) (feedcache.Logger, func() error, error) {
	lvl := parseLevel(cfg.Level)
	switch strings.ToLower(cfg.Backend) {
	case "", "zap":
		enc := zap.NewProductionEncoderConfig()
		enc.TimeKey = "ts"
		enc.EncodeTime = zapcore.ISO8601TimeEncoder
		core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(w), zapLevel(lvl))
		l := zap.New(core)
		if component != "" {
			l = l.Named(component)
		}
		return zaplog.New(l), l.Sync, nil

	case "logrus":
		l := logrus.New()
		l.SetOutput(w)
		l.SetFormatter(&logrus.JSONFormatter{})
		l.SetLevel(logrusLevel(lvl))
		return lrlog.New(l, component), noSync, nil

	case "slog":
		l := NewSlog(cfg, w)
		if component != "" {
			l = l.With("component", component)
		}
		return slogadapter.New(l), noSync, nil
	}
	return nil, nil, fmt.Errorf("logging: unknown backend %q", cfg.Backend)
}

func noSync() error { return nil }

// NewSlog returns a JSON slog logger at the configured level. Cache hooks log
// through it regardless of the backend.
func NewSlog(cfg config.LogConfig, w io.Writer) *stdslog.Logger {
	return stdslog.New(stdslog.NewJSONHandler(w, &stdslog.HandlerOptions{Level: parseLevel(cfg.Level)}))
}

// parseLevel converts a level name to slog.Level; unknown names mean info.
func parseLevel(level string) stdslog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return stdslog.LevelDebug
	case "WARN", "WARNING":
		return stdslog.LevelWarn
	case "ERROR":
		return stdslog.LevelError
	default:
		return stdslog.LevelInfo
	}
}

func zapLevel(l stdslog.Level) zapcore.Level {
	switch {
	case l <= stdslog.LevelDebug:
		return zapcore.DebugLevel
	case l <= stdslog.LevelInfo:
		return zapcore.InfoLevel
	case l <= stdslog.LevelWarn:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

func logrusLevel(l stdslog.Level) logrus.Level {
	switch {
	case l <= stdslog.LevelDebug:
		return logrus.DebugLevel
	case l <= stdslog.LevelInfo:
		return logrus.InfoLevel
	case l <= stdslog.LevelWarn:
		return logrus.WarnLevel
	default:
		return logrus.ErrorLevel
	}
}
