// Package logging builds the logrus logger shared by the binaries.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New returns a logger writing to stderr. LOG_LEVEL and LOG_FORMAT in the
// environment override the configured values.
func New(level, format string) (*logrus.Logger, error) {
	return NewTo(os.Stderr, level, format)
}

func NewTo(out io.Writer, level, format string) (*logrus.Logger, error) {
	if v, ok := os.LookupEnv("LOG_LEVEL"); ok && v != "" {
		level = v
	}
	if v, ok := os.LookupEnv("LOG_FORMAT"); ok && v != "" {
		format = v
	}
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(lvl)
	switch strings.ToLower(format) {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return l, nil
}
