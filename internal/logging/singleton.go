package logging

import (
	"sync"
)

var (
	instance *Logger
	once     sync.Once
)

// InitLogger initializes the process-wide logger with the given configuration.
// Safe to call more than once; only the first call takes effect.
func InitLogger(config *Config) error {
	var err error
	once.Do(func() {
		instance, err = NewLogger(config)
	})
	return err
}

// GetGlobalLogger returns the singleton logger instance.
// It panics if InitLogger was never called.
func GetGlobalLogger() *Logger {
	if instance == nil {
		panic("logger not initialized - call logging.InitLogger() first")
	}
	return instance
}
