package main

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// newLogger builds the process logger, teeing to file when one is given.
func newLogger(level, file string) (*logrus.Logger, io.Closer, error) {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "log level %q", level)
	}
	log.SetLevel(lvl)

	if file == "" {
		return log, io.NopCloser(nil), nil
	}
	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		log.WithError(err).Warn("failed to log to file, using default stderr")
		return log, io.NopCloser(nil), nil
	}
	log.SetOutput(io.MultiWriter(os.Stderr, f))
	return log, f, nil
}
