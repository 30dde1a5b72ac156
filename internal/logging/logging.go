package logging

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/davecgh/go-spew/spew"
)

var once sync.Once

var singleton *log.Logger

// Default returns the process logger, built on first use.
func Default() *log.Logger {
	once.Do(func() {
		singleton = New(os.Stderr, "skel")
	})
	return singleton
}

// New builds a logger in the process style writing to w.
func New(w io.Writer, prefix string) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          prefix,
	})
}

// SetLevel sets the process logger level from its name ("debug", "info",
// "warn", "error"). Unknown names leave the level unchanged.
func SetLevel(name string) error {
	lvl, err := log.ParseLevel(name)
	if err != nil {
		return err
	}
	Default().SetLevel(lvl)
	return nil
}

func Debug(msg string, keyvals ...interface{}) { Default().Debug(msg, keyvals...) }

func Info(msg string, keyvals ...interface{}) { Default().Info(msg, keyvals...) }

func Warn(msg string, keyvals ...interface{}) { Default().Warn(msg, keyvals...) }

func Error(msg string, keyvals ...interface{}) { Default().Error(msg, keyvals...) }

func Debugf(format string, args ...interface{}) { Default().Debugf(format, args...) }

func Infof(format string, args ...interface{}) { Default().Infof(format, args...) }

func Fatal(msg string, keyvals ...interface{}) { Default().Fatal(msg, keyvals...) }

var dumper = spew.ConfigState{
	Indent:                  "  ",
	DisableCapacities:       true,
	DisablePointerAddresses: true,
	SortKeys:                true,
	MaxDepth:                6,
}

// SDump formats values for debugging.
func SDump(v ...interface{}) string { return dumper.Sdump(v...) }

// Dump writes SDump(v...) to w.
func Dump(w io.Writer, v ...interface{}) { dumper.Fdump(w, v...) }
