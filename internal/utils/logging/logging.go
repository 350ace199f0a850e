package logging

import "github.com/sirupsen/logrus"

var (
	logger *logrus.Entry
)

type Fields = logrus.Fields

func init() {
	if logger == nil {
		l := logrus.New()
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		logger = logrus.NewEntry(l)
	}
}

func SetLevel(l logrus.Level) {
	logger.Logger.SetLevel(l)
}

func Entry() *logrus.Entry {
	return logger
}

func WithError(e error) *logrus.Entry {
	return logger.WithError(e)
}

func WithFields(f Fields) *logrus.Entry {
	return logger.WithFields(f)
}

func Error(args ...interface{}) {
	logger.Error(args...)
}
