package schedule

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/corent-backend/internal/logger"
)

// Sweeper удаляет просроченные записи и возвращает их количество.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// SweepJob чистит хранилище кодов и счётчики лимитов.
type SweepJob struct {
	targets map[string]Sweeper
}

func NewSweepJob(targets map[string]Sweeper) *SweepJob {
	return &SweepJob{targets: targets}
}

func (j *SweepJob) Name() string { return "sms_sweep" }

func (j *SweepJob) Run(ctx context.Context) error {
	fields := logrus.Fields{}
	for name, target := range j.targets {
		n, err := target.Sweep(ctx)
		if err != nil {
			return err
		}
		fields[name] = n
	}
	logger.Log.WithFields(fields).Debug("sweep done")
	return nil
}
