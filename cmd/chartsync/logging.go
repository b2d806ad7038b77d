package main

import (
	"io"

	"github.com/raykavin/chartsync/internal/config"
	"github.com/raykavin/chartsync/pkg/logger"
	logrusadapter "github.com/raykavin/chartsync/pkg/logger/logrus"
	zerologadapter "github.com/raykavin/chartsync/pkg/logger/zerolog"
	"github.com/sirupsen/logrus"
)

// newLogger builds the configured backend. Logs go to out so tables on
// stdout stay clean.
func newLogger(c config.LogConfig, out io.Writer) (logger.Logger, error) {
	level, _ := logger.ParseLevel(c.Level)

	if c.Format == "logrus" {
		l := logrus.New()
		l.SetOutput(out)
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   c.Colored,
			DisableColors: !c.Colored,
		})
		adapter := logrusadapter.NewAdapter(l)
		adapter.SetLevel(level)
		return adapter, nil
	}

	adapter, err := zerologadapter.New(zerologadapter.Options{
		Level:   "trace",
		Colored: c.Colored,
		JSON:    c.Format == "json",
		Out:     out,
	})
	if err != nil {
		return nil, err
	}
	adapter.SetLevel(level)
	return adapter, nil
}
