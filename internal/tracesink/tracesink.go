// Package tracesink implements a StatusCallback that appends every trace
// and notification event to a size- and age-rotated log file, grounded on
// ch10gate's logConfig/lumberjack wiring in cmd/ch10d/main.go.
package tracesink

import (
	"encoding/json"
	"os"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Pathorse/ihmc-ethercat-master"
	"github.com/Pathorse/ihmc-ethercat-master/pkg/config"
)

// Sink writes structured trace/notification records to a rotating file,
// one JSON object per line.
type Sink struct {
	logger *log.Logger
}

// New opens a rotating sink at cfg.Directory/ethercat-trace.log, applying
// cfg's size/age/backup/compress limits. If cfg.Directory is empty, the
// sink writes to stderr instead, for local runs without a configured
// trace log.
func New(cfg config.TraceLogConfig) *Sink {
	logger := log.New()
	logger.SetFormatter(&log.JSONFormatter{})

	if cfg.Directory == "" {
		logger.SetOutput(os.Stderr)
		return &Sink{logger: logger}
	}

	logger.SetOutput(&lumberjack.Logger{
		Filename:   cfg.Directory + "/ethercat-trace.log",
		MaxSize:    orDefault(cfg.MaxSizeMB, 50),
		MaxAge:     orDefault(cfg.MaxAgeDays, 28),
		MaxBackups: orDefault(cfg.MaxBackups, 5),
		Compress:   cfg.Compress,
	})
	return &Sink{logger: logger}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func (s *Sink) Trace(kind ethercat.TraceEvent) {
	s.logger.WithField("kind", kind.String()).Info("trace")
}

func (s *Sink) Notify(kind ethercat.NotificationKind, payload any) {
	encoded, _ := json.Marshal(payload)
	s.logger.WithFields(log.Fields{
		"kind":    kind.String(),
		"payload": json.RawMessage(encoded),
	}).Warn("notify")
}
