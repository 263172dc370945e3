package util

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
)

// Logger is the process-wide logger. The helpers below are no-ops while it is nil.
var Logger *log.Logger

var prefixStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#FFFFFF")).
	Background(lipgloss.Color("#6366F1")).
	Bold(true).
	Padding(0, 1).
	MarginRight(1)

// InitLogger writes to stderr
func InitLogger() {
	InitLoggerWithWriter(os.Stderr)
}

// InitLoggerWithWriter builds the logger for the current debug mode.
// Debug mode adds caller and timestamp to every line.
func InitLoggerWithWriter(w io.Writer) {
	level := log.InfoLevel
	if IsDebug {
		level = log.DebugLevel
	}

	Logger = log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportCaller:    IsDebug,
		ReportTimestamp: IsDebug,
		TimeFormat:      "15:04:05",
		Prefix:          prefixStyle.Render("HiAnime"),
	})
	Logger.SetColorProfile(termenv.TrueColor)
	Debug("Debug logging enabled")
}

// Debug logs only in debug mode
func Debug(msg string, keyvals ...any) {
	if IsDebug && Logger != nil {
		Logger.Debug(msg, keyvals...)
	}
}

// Debugf is Debug with a format string, used for timing lines
func Debugf(format string, args ...any) {
	if IsDebug && Logger != nil {
		Logger.Debug(fmt.Sprintf(format, args...))
	}
}

func Info(msg string, keyvals ...any) {
	if Logger != nil {
		Logger.Info(msg, keyvals...)
	}
}

func Warn(msg string, keyvals ...any) {
	if Logger != nil {
		Logger.Warn(msg, keyvals...)
	}
}

func Error(msg string, keyvals ...any) {
	if Logger != nil {
		Logger.Error(msg, keyvals...)
	}
}
