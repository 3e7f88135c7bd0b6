package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	// Logger is the root log instance used for debug and warning output.
	Logger *logrus.Logger
	// InfoLogger carries informational output.
	InfoLogger *logrus.Logger
	// ErrorLogger carries error and fatal output.
	ErrorLogger *logrus.Logger
)

// ChannelConfig describes a single log channel from the instance
// configuration ("log.<name>.*" option group).
type ChannelConfig struct {
	Name        string
	Type        string // "console" or "file"
	Destination string
	Severity    string
}

// Config is the logging subsystem configuration.
type Config struct {
	Channels []ChannelConfig
}

// CustomFormatter renders entries as "[time] [LEVL] (caller) message".
type CustomFormatter struct {
	TimestampFormat string
}

// Format implements the logrus.Formatter interface.
func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	timestamp := entry.Time.Format("15:04:05 MST 2006/01/02")

	level := strings.ToUpper(entry.Level.String())
	if len(level) > 4 {
		level = level[:4]
	}

	caller := getCaller()

	logMsg := fmt.Sprintf("[%s] [%s] (%s) %s\n",
		timestamp,
		level,
		caller,
		entry.Message)

	return []byte(logMsg), nil
}

func getCaller() string {
	for i := 2; i < 20; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		if strings.Contains(file, "/logrus/") ||
			strings.Contains(file, "/logger.go") ||
			strings.Contains(file, "sirupsen") ||
			strings.Contains(file, "/entry.go") {
			continue
		}

		funcName := runtime.FuncForPC(pc).Name()
		fileName := filepath.Base(file)
		return fmt.Sprintf("%s:%s:%d", fileName, funcName, line)
	}

	return "unknown:unknown:0"
}

func parseLogLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}

// InitLogger initializes the logging subsystem from the configured channels.
//
// Console channels go to stdout (errors to stderr); file channels append to
// their destination file. The logger level is the most verbose channel
// severity, and never less verbose than info, so that no configured channel
// loses records.
func InitLogger(config Config) error {
	customFormatter := &CustomFormatter{
		TimestampFormat: "15:04:05 MST 2006/01/02",
	}

	Logger = logrus.New()
	InfoLogger = logrus.New()
	ErrorLogger = logrus.New()
	for _, l := range []*logrus.Logger{Logger, InfoLogger, ErrorLogger} {
		l.SetFormatter(customFormatter)
	}

	level := logrus.InfoLevel
	var infoOuts, errorOuts []io.Writer
	for _, ch := range config.Channels {
		if chLevel := parseLogLevel(ch.Severity); chLevel > level {
			level = chLevel
		}
		switch ch.Type {
		case "file":
			f, err := openLogFile(ch.Destination)
			if err != nil {
				return err
			}
			infoOuts = append(infoOuts, f)
			errorOuts = append(errorOuts, f)
		default:
			infoOuts = append(infoOuts, os.Stdout)
			errorOuts = append(errorOuts, os.Stderr)
		}
	}
	if len(infoOuts) == 0 {
		infoOuts = append(infoOuts, os.Stdout)
		errorOuts = append(errorOuts, os.Stderr)
	}

	for _, l := range []*logrus.Logger{Logger, InfoLogger, ErrorLogger} {
		l.SetLevel(level)
	}
	InfoLogger.SetOutput(io.MultiWriter(infoOuts...))
	Logger.SetOutput(InfoLogger.Out)
	ErrorLogger.SetOutput(io.MultiWriter(errorOuts...))

	return nil
}

func openLogFile(logPath string) (*os.File, error) {
	logDir := filepath.Dir(logPath)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
}

// Info logs at info level.
func Info(args ...interface{}) {
	if InfoLogger != nil {
		InfoLogger.Info(args...)
	}
}

// Infof logs a formatted message at info level.
func Infof(format string, args ...interface{}) {
	if InfoLogger != nil {
		InfoLogger.Infof(format, args...)
	}
}

// Debug logs at debug level.
func Debug(args ...interface{}) {
	if Logger != nil {
		Logger.Debug(args...)
	}
}

// Debugf logs a formatted message at debug level.
func Debugf(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Debugf(format, args...)
	}
}

// Warn logs at warning level.
func Warn(args ...interface{}) {
	if Logger != nil {
		Logger.Warn(args...)
	}
}

// Warnf logs a formatted message at warning level.
func Warnf(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Warnf(format, args...)
	}
}

// Error logs at error level.
func Error(args ...interface{}) {
	if ErrorLogger != nil {
		ErrorLogger.Error(args...)
	}
}

// Errorf logs a formatted message at error level.
func Errorf(format string, args ...interface{}) {
	if ErrorLogger != nil {
		ErrorLogger.Errorf(format, args...)
	}
}

// Fatal logs at fatal level and exits.
func Fatal(args ...interface{}) {
	if ErrorLogger != nil {
		ErrorLogger.Fatal(args...)
	}
}

// Fatalf logs a formatted message at fatal level and exits.
func Fatalf(format string, args ...interface{}) {
	if ErrorLogger != nil {
		ErrorLogger.Fatalf(format, args...)
	}
}
