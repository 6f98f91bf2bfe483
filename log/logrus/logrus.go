package logrus

import (
	"github.com/sirupsen/logrus"

	onequery "github.com/lifeomic/one-query"
)

type Logger struct{ E *logrus.Entry }

var _ onequery.Logger = Logger{}

func (l Logger) Debug(msg string, f onequery.Fields) { l.E.WithFields(logrus.Fields(f)).Debug(msg) }
func (l Logger) Info(msg string, f onequery.Fields)  { l.E.WithFields(logrus.Fields(f)).Info(msg) }
func (l Logger) Warn(msg string, f onequery.Fields)  { l.E.WithFields(logrus.Fields(f)).Warn(msg) }
func (l Logger) Error(msg string, f onequery.Fields) { l.E.WithFields(logrus.Fields(f)).Error(msg) }
