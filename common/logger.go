package common

import (
	"log"
	"os"
)

// NewLogger returns a stdlib logger with a consistent component prefix.
func NewLogger(component string) *log.Logger {
	return log.New(os.Stderr, "["+component+"] ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
}
