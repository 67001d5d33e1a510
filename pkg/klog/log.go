// Package klog sets up structured logging for the scheduling core through a
// *logrus.Entry handed out here. The kernel logs userinit and fork through
// it; exit, wait, kill, wakeup, the scheduler loop and the runqueue do not
// log.
package klog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/arctir-kernel/cfsproc/pkg/config"
	"github.com/sirupsen/logrus"
)

// New returns a logger for the kernel. In debug mode it tails to
// development.log inside the config dir; otherwise it discards all output,
// matching the teacher's production/development split.
func New(cfg *config.KernelConfig, build string) *logrus.Entry {
	var log *logrus.Logger
	if cfg.Debug || os.Getenv("CFSPROC_DEBUG") == "TRUE" {
		log = newDevelopmentLogger(cfg)
	} else {
		log = newProductionLogger()
	}

	log.Formatter = &logrus.JSONFormatter{}

	return log.WithFields(logrus.Fields{
		"debug": cfg.Debug,
		"build": build,
		"nproc": cfg.NProc,
	})
}

func getLogLevel() logrus.Level {
	strLevel := os.Getenv("CFSPROC_LOG_LEVEL")
	level, err := logrus.ParseLevel(strLevel)
	if err != nil {
		return logrus.DebugLevel
	}
	return level
}

func newDevelopmentLogger(cfg *config.KernelConfig) *logrus.Logger {
	log := logrus.New()
	log.SetLevel(getLogLevel())
	file, err := os.OpenFile(filepath.Join(cfg.ConfigDir, "development.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		fmt.Println("unable to log to file")
		os.Exit(1)
	}
	log.SetOutput(file)
	return log
}

func newProductionLogger() *logrus.Logger {
	log := logrus.New()
	log.Out = io.Discard
	log.SetLevel(logrus.ErrorLevel)
	return log
}
