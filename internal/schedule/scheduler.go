// Package schedule runs background maintenance jobs on cron
// expressions, currently just the expired share code sweep.
package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type Scheduler interface {
	AddJob(job Job, spec string) error
	Start(ctx context.Context)
	Stop()
}

type CronScheduler struct {
	cron *cron.Cron
	ctx  context.Context

	mu      sync.Mutex
	running map[string]bool
}

func NewCronScheduler() *CronScheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return &CronScheduler{
		cron:    cron.New(cron.WithParser(parser)),
		running: make(map[string]bool),
	}
}

func (c *CronScheduler) AddJob(job Job, spec string) error {
	if _, err := c.cron.AddFunc(spec, func() { c.runOnce(job) }); err != nil {
		return err
	}
	logutil.GetLogger(context.Background()).Info("job scheduled",
		zap.String("job", job.Name()),
		zap.String("cron", spec),
	)
	return nil
}

func (c *CronScheduler) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.ctx = ctx
	c.cron.Start()
}

func (c *CronScheduler) Stop() {
	<-c.cron.Stop().Done()
}

// runOnce skips a tick when the previous run of the same job has not
// returned yet, so a slow sweep never stacks up.
func (c *CronScheduler) runOnce(job Job) {
	name := job.Name()
	c.mu.Lock()
	if c.running[name] {
		c.mu.Unlock()
		logutil.GetLogger(context.Background()).Info("job still running, tick skipped", zap.String("job", name))
		return
	}
	c.running[name] = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.running, name)
		c.mu.Unlock()
	}()

	ctx := c.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	logger := logutil.GetLogger(ctx).With(zap.String("job", name))
	start := time.Now()
	if err := job.Run(ctx); err != nil {
		logger.Error("job failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return
	}
	logger.Info("job finished", zap.Duration("duration", time.Since(start)))
}
