package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger returns the logger configured by the root flags. Without
// --verbose only warnings and errors are logged.
func (rcc *rootCmdConfig) Logger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.WarnLevel)
	if rcc.verbose {
		l.SetLevel(logrus.DebugLevel)
	}
	if rcc.logFormat == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	return l
}

func (rcc *rootCmdConfig) Logf(format string, a ...interface{}) {
	if !rcc.verbose {
		return
	}
	rcc.Logger().Info(fmt.Sprintf(format, a...))
}

func (rcc *rootCmdConfig) Validate() error {
	if rcc.logFormat != "text" && rcc.logFormat != "json" {
		return fmt.Errorf("unknown log format %s", rcc.logFormat)
	}
	return nil
}

func exit(code int, err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(code)
}
