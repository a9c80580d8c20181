package logging

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the global logrus instance for the tasks service.
var Logger = logrus.New()
var once sync.Once

// CustomFormatter renders log records as comma-separated audit lines with a
// generated event id.
type CustomFormatter struct {
	SystemName string
}

// Format generates the output byte slice for a log entry.
func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b *bytes.Buffer
	if entry.Buffer != nil {
		b = entry.Buffer
	} else {
		b = &bytes.Buffer{}
	}

	utcTime := entry.Time.UTC()
	b.WriteString(fmt.Sprintf("Date: %s, Time: %s, ", utcTime.Format("2006-01-02"), utcTime.Format("15:04:05")))
	b.WriteString(fmt.Sprintf("Event Source: %s, ", f.SystemName))
	b.WriteString(fmt.Sprintf("Event Type: %s, ", strings.ToUpper(entry.Level.String())))
	b.WriteString(fmt.Sprintf("Event ID: %s, ", uuid.New().String()))
	b.WriteString(fmt.Sprintf("Message: %s,", entry.Message))

	if entry.HasCaller() {
		b.WriteString(fmt.Sprintf(" Location: %s:%d in %s", entry.Caller.File, entry.Caller.Line, entry.Caller.Function))
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

// InitLogger initializes the global logger with rolling file output.
func InitLogger(logFilePath string) {
	once.Do(func() {
		if dir := "logs"; strings.HasPrefix(logFilePath, dir+"/") {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.Mkdir(dir, 0700); err != nil {
					logrus.Fatalf("Event ID: LOG_DIR_CREATE_FAILED, Description: Failed to create log directory: %v", err)
				}
			}
		}

		logFile := &lumberjack.Logger{
			Filename:   logFilePath,
			MaxSize:    10, // megabytes
			MaxBackups: 3,  // number of old log files to retain
			MaxAge:     28, // days
			Compress:   true,
		}

		Logger.SetOutput(logFile)
		Logger.SetFormatter(&CustomFormatter{SystemName: "tasks-service"})
		Logger.SetLevel(logrus.InfoLevel)
		Logger.SetReportCaller(true)

		Logger.Infof("Event ID: LOGGER_INITIALIZED, Description: Logger initialized for tasks-service, output to: %s", logFile.Filename)
	})
}
