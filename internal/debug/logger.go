package debug

import (
	"log"
	"os"
)

type Logger struct {
	enabled bool
}

// NewLogger writes to debug.log in the working directory, or to the path in
// the DEBUG_LOG environment variable when set.
func NewLogger(enabled bool) *Logger {
	if enabled {
		path := os.Getenv("DEBUG_LOG")
		if path == "" {
			path = "debug.log"
		}
		logFile, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err == nil {
			log.SetOutput(logFile)
		}
		log.Printf("=== DEBUG MODE ENABLED ===")
	}

	return &Logger{enabled: enabled}
}

func (d *Logger) Printf(format string, args ...interface{}) {
	if d.enabled {
		log.Printf(format, args...)
	}
}

func (d *Logger) Println(args ...interface{}) {
	if d.enabled {
		log.Println(args...)
	}
}

func (d *Logger) IsEnabled() bool {
	return d != nil && d.enabled
}
