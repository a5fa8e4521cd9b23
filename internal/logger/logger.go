// Package logger provides a process-wide structured logger for waywall.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Logger is the process-wide logger instance. ToFile replaces it
// wholesale, mirroring the teacher's package-level swap pattern; SetLevel
// changes its level in place.
var Logger *log.Logger

func init() {
	Logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})
	SetLevel(os.Getenv("WAYWALL_LOG"))
}

// SetLevel parses a level name (debug/info/warn/error/fatal, case
// insensitive) and applies it to Logger. An empty or unrecognised name
// sets the level to info.
func SetLevel(name string) {
	switch strings.ToUpper(name) {
	case "DEBUG":
		Logger.SetLevel(log.DebugLevel)
	case "WARN", "WARNING":
		Logger.SetLevel(log.WarnLevel)
	case "ERROR":
		Logger.SetLevel(log.ErrorLevel)
	case "FATAL":
		Logger.SetLevel(log.FatalLevel)
	default:
		Logger.SetLevel(log.InfoLevel)
	}
}

// ToFile redirects Logger to w, preserving the current level and tagging
// every line with prefix.
func ToFile(w io.Writer, prefix string) {
	level := Logger.GetLevel()
	Logger = log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Prefix:          prefix,
	})
	Logger.SetLevel(level)
}

func Debug(msg interface{}, kv ...interface{}) { Logger.Debug(msg, kv...) }
func Info(msg interface{}, kv ...interface{})  { Logger.Info(msg, kv...) }
func Warn(msg interface{}, kv ...interface{})  { Logger.Warn(msg, kv...) }
func Error(msg interface{}, kv ...interface{}) { Logger.Error(msg, kv...) }
func Fatal(msg interface{}, kv ...interface{}) { Logger.Fatal(msg, kv...) }

func Debugf(format string, args ...interface{}) { Logger.Debugf(format, args...) }
func Infof(format string, args ...interface{})  { Logger.Infof(format, args...) }
func Warnf(format string, args ...interface{})  { Logger.Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { Logger.Errorf(format, args...) }
func Fatalf(format string, args ...interface{}) { Logger.Fatalf(format, args...) }
