package core

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var once sync.Once

type logger struct {
	*log.Logger
}

var singleton *logger

func getLogger() *logger {
	once.Do(
		func() {
			l := log.NewWithOptions(os.Stderr, log.Options{
				ReportCaller:    true,
				ReportTimestamp: true,
				TimeFormat:      time.RFC3339,
				CallerOffset:    1,
				Prefix:          "Playground 🔺",
			})
			l.SetLevel(log.DebugLevel)
			singleton = &logger{l}
		})
	return singleton
}

// ParseLogLevel accepts one of debug, info, warn, error, fatal.
func ParseLogLevel(level string) (log.Level, error) {
	return log.ParseLevel(level)
}

func SetLogLevel(level string) error {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return err
	}
	getLogger().SetLevel(lvl)
	return nil
}

func SetLogOutput(w io.Writer) {
	getLogger().SetOutput(w)
}

func LogDebug(msg string, args ...interface{}) {
	getLogger().Debugf(msg, args...)
}

func LogInfo(msg string, args ...interface{}) {
	getLogger().Infof(msg, args...)
}

func LogWarn(msg string, args ...interface{}) {
	getLogger().Warnf(msg, args...)
}

func LogError(msg string, args ...interface{}) {
	getLogger().Errorf(msg, args...)
}

func LogFatal(msg string, args ...interface{}) {
	getLogger().Fatalf(msg, args...)
}

// DiagnosticSeverity is the severity attached to a message emitted by the
// device runtime (validation layers, driver).
type DiagnosticSeverity uint8

const (
	DiagnosticVerbose DiagnosticSeverity = iota
	DiagnosticInfo
	DiagnosticWarning
	DiagnosticPerformance
	DiagnosticError
)

func (s DiagnosticSeverity) String() string {
	switch s {
	case DiagnosticVerbose:
		return "Verbose"
	case DiagnosticInfo:
		return "Info"
	case DiagnosticWarning:
		return "Warning"
	case DiagnosticPerformance:
		return "Performance"
	case DiagnosticError:
		return "Error"
	default:
		return "Unknown"
	}
}

// LogDiagnostic forwards a runtime message to the log sink. Errors never
// abort the process from here; the runtime keeps going after reporting.
func LogDiagnostic(severity DiagnosticSeverity, category string, text string) {
	l := getLogger().With("severity", severity.String(), "category", category)
	switch severity {
	case DiagnosticError:
		l.Error(text)
	case DiagnosticWarning, DiagnosticPerformance:
		l.Warn(text)
	case DiagnosticInfo:
		l.Info(text)
	default:
		l.Debug(text)
	}
}
