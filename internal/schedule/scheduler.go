package schedule

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/corent-backend/internal/goroutine"
	"github.com/ignatzorin/corent-backend/internal/logger"
)

// Job описывает периодическую фоновую задачу.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type Scheduler interface {
	AddJob(job Job, spec string) error
	Start(ctx context.Context)
	Stop()
}

// CronScheduler запускает задачи по cron-выражению. Пересекающиеся запуски
// одной задачи пропускаются, panic в задаче не роняет процесс.
type CronScheduler struct {
	cron    *cron.Cron
	entries map[string]cron.EntryID
	ctx     context.Context
}

func NewCronScheduler() *CronScheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &CronScheduler{
		cron:    cron.New(cron.WithParser(parser)),
		entries: make(map[string]cron.EntryID),
	}
}

func (c *CronScheduler) AddJob(job Job, spec string) error {
	log := logger.Log.WithFields(logrus.Fields{"job": job.Name(), "spec": spec})
	entryID, err := c.cron.AddFunc(spec, c.wrap(job, spec))
	if err != nil {
		log.WithError(err).Error("schedule job failed")
		return err
	}
	c.entries[job.Name()] = entryID
	log.Info("job scheduled")
	return nil
}

func (c *CronScheduler) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.ctx = ctx
	c.cron.Start()
}

// Stop ждёт завершения уже запущенных задач.
func (c *CronScheduler) Stop() {
	ctx := c.cron.Stop()
	<-ctx.Done()
}

func (c *CronScheduler) wrap(job Job, spec string) func() {
	var running atomic.Bool
	return func() {
		log := logger.Log.WithFields(logrus.Fields{"job": job.Name(), "spec": spec})
		if !running.CompareAndSwap(false, true) {
			log.Info("job skipped: still running")
			return
		}
		defer running.Store(false)

		ctx := c.ctx
		if ctx == nil {
			ctx = context.Background()
		}

		goroutine.Recover(job.Name(), func() {
			start := time.Now()
			err := job.Run(ctx)
			elapsed := time.Since(start)
			if err != nil {
				log.WithError(err).WithField("duration_ms", elapsed.Milliseconds()).Error("job finished")
				return
			}
			log.WithField("duration_ms", elapsed.Milliseconds()).Debug("job finished")
		})
	}
}
