package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a structured entry scoped to one service. All log lines carry
// the service name and hostname so multi-mode deployments stay greppable.
func New(service string) *logrus.Entry {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	if os.Getenv("LOG_LEVEL") == "debug" {
		l.SetLevel(logrus.DebugLevel)
	}
	host, _ := os.Hostname()
	return l.WithFields(logrus.Fields{"service": service, "hostname": host})
}
