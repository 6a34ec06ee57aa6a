package logging

import (
	"io"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	maxLogFileSizeMB = 50
	maxLogFileAgeDay = 28
	maxLogBackups    = 5
)

// NewOutput returns the writer log records should go to.
//
// An empty path means standard output. Otherwise, records are appended to a file at path that is rotated and
// compressed once it grows past 50 megabytes.
func NewOutput(path string) io.Writer {
	if path == "" {
		return os.Stdout
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxLogFileSizeMB,
		MaxAge:     maxLogFileAgeDay,
		MaxBackups: maxLogBackups,
		LocalTime:  false,
		Compress:   true,
	}
}
