package logging

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	openWriters   []*lumberjack.Logger
	openWritersMu sync.Mutex
)

// levelFile returns a rotating writer for <Director>/<level>.log.
func levelFile(c Config, level zapcore.Level) zapcore.WriteSyncer {
	_ = os.MkdirAll(c.Director, 0o755)
	w := &lumberjack.Logger{
		Filename:   filepath.Join(c.Director, level.String()+".log"),
		MaxSize:    c.MaxSize,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxAge,
		Compress:   c.Compress,
		LocalTime:  true,
	}
	openWritersMu.Lock()
	openWriters = append(openWriters, w)
	openWritersMu.Unlock()
	return zapcore.AddSync(w)
}

// cores builds one file core per enabled level, each accepting exactly its
// level, plus a terminal core for everything above the minimum.
func cores(c Config) []zapcore.Core {
	minLevel := c.TransportLevel()

	var out []zapcore.Core
	if c.Director != "" {
		for level := minLevel; level <= zapcore.FatalLevel; level++ {
			lvl := level
			out = append(out, zapcore.NewCore(c.encoder(), levelFile(c, lvl), zap.LevelEnablerFunc(func(l zapcore.Level) bool {
				return l == lvl
			})))
		}
	}
	if c.LogInTerminal {
		out = append(out, zapcore.NewCore(c.encoder(), zapcore.Lock(os.Stdout), zap.NewAtomicLevelAt(minLevel)))
	}
	return out
}

// CloseWriters closes every log file opened by NewLogger.
func CloseWriters() error {
	openWritersMu.Lock()
	defer openWritersMu.Unlock()

	var lastErr error
	for _, w := range openWriters {
		if err := w.Close(); err != nil {
			lastErr = err
		}
	}
	openWriters = nil
	return lastErr
}
