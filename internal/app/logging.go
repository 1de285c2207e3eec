package app

import (
	"io"

	"github.com/sirupsen/logrus"
)

// SetupLogging configures the standard logrus logger. Logs go to w so that
// interactive output on stdout stays readable.
func SetupLogging(l *Logging, w io.Writer) error {
	level, err := logrus.ParseLevel(l.Level)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	logrus.SetOutput(w)

	if l.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
	return nil
}
