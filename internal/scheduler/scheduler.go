package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"MarketGauge/internal/collector"
	"MarketGauge/internal/logger"
	"MarketGauge/internal/model"
	"MarketGauge/internal/notifier"
	"MarketGauge/internal/service"
)

// Analyzer answers snapshot and daily-bar queries.
type Analyzer interface {
	GetDaily(ctx context.Context, day time.Time) (*model.DailyBar, error)
	GetSnapshot(ctx context.Context, day time.Time) (*model.Snapshot, error)
	Compute(ctx context.Context, day time.Time) (*model.Snapshot, error)
}

// Sender delivers chat messages.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int, baseDelay time.Duration) error
}

// Scheduler manages the periodic refresh and chat commands.
type Scheduler struct {
	Cron     *cron.Cron
	Analyzer Analyzer
	Notifier Sender // nil disables notifications
	Ctx      context.Context
	now      func() time.Time
	log      *logrus.Entry
}

// NewScheduler creates a new Scheduler. tn may be nil.
func NewScheduler(ctx context.Context, an Analyzer, tn Sender) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC)),
		Analyzer: an,
		Notifier: tn,
		Ctx:      ctx,
		now:      time.Now,
		log:      logger.WithComponent("scheduler"),
	}
}

// RegisterRefresh registers the snapshot refresh for the current date.
func (s *Scheduler) RegisterRefresh(refreshCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, s.refreshTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// RunNow executes the refresh task immediately.
func (s *Scheduler) RunNow() {
	s.refreshTask()
}

func (s *Scheduler) refreshTask() {
	day := model.Day(s.now())
	log := s.log.WithField("date", model.DateKey(day))
	log.Info("running snapshot refresh")

	snap, err := s.Analyzer.Compute(s.Ctx, day)
	if err != nil {
		log.WithError(err).Error("snapshot refresh failed")
		s.trySend(fmt.Sprintf("❌ snapshot refresh for %s failed: %v", model.DateKey(day), err))
		return
	}
	log.WithFields(logrus.Fields{
		"price":       snap.Price,
		"cos_monthly": snap.Composite.COS.Monthly,
		"bsi_monthly": snap.Composite.BSI.Monthly,
	}).Info("snapshot refreshed")
	s.trySend(notifier.FormatSnapshot(snap))
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.FormatHelp()
	}
	switch fields[0] {
	case "/today":
		return s.snapshotReply(ctx, model.Day(s.now()))
	case "/snapshot", "/daily":
		if len(fields) < 2 {
			return "usage: " + fields[0] + " YYYY-MM-DD"
		}
		day, err := model.ParseDate(fields[1])
		if err != nil {
			return fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", fields[1])
		}
		if fields[0] == "/daily" {
			return s.dailyReply(ctx, day)
		}
		return s.snapshotReply(ctx, day)
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) snapshotReply(ctx context.Context, day time.Time) string {
	snap, err := s.Analyzer.GetSnapshot(ctx, day)
	if err != nil {
		return errorReply(day, err)
	}
	return notifier.FormatSnapshot(snap)
}

func (s *Scheduler) dailyReply(ctx context.Context, day time.Time) string {
	bar, err := s.Analyzer.GetDaily(ctx, day)
	if err != nil {
		return errorReply(day, err)
	}
	return notifier.FormatDaily(bar)
}

func errorReply(day time.Time, err error) string {
	switch {
	case errors.Is(err, service.ErrFutureDate):
		return fmt.Sprintf("%s is in the future", model.DateKey(day))
	case errors.Is(err, collector.ErrNotFound), errors.Is(err, service.ErrNoPrice):
		return fmt.Sprintf("no data for %s", model.DateKey(day))
	default:
		return fmt.Sprintf("❌ %s: %v", model.DateKey(day), err)
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3, 2*time.Second); err != nil {
		s.log.WithError(err).Error("send notification")
	}
}
