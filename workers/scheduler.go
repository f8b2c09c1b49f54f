package workers

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"habit-reward-system/models"
	"habit-reward-system/utils"
)

// Scheduler owns the recurring batch jobs: leaderboard window resets, the
// live activity sweep and the monthly ledger archive. All schedules run in
// UTC to match the engine's day and week boundaries.
type Scheduler struct {
	DB       *gorm.DB
	Sweep    *LiveSweepWorker
	Archiver *utils.LedgerArchiver
	sched    gocron.Scheduler
}

func NewScheduler(db *gorm.DB, sweep *LiveSweepWorker, archiver *utils.LedgerArchiver, sweepInterval time.Duration) (*Scheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, err
	}
	s := &Scheduler{DB: db, Sweep: sweep, Archiver: archiver, sched: sched}

	// Sunday 00:00 UTC, the week boundary.
	if _, err := sched.NewJob(
		gocron.CronJob("0 0 * * 0", false),
		gocron.NewTask(logged("weekly_reset", s.weeklyReset)),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return nil, err
	}

	// First of the month, 00:00 UTC.
	if _, err := sched.NewJob(
		gocron.CronJob("0 0 1 * *", false),
		gocron.NewTask(logged("monthly_reset", s.monthlyReset)),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return nil, err
	}

	if _, err := sched.NewJob(
		gocron.DurationJob(sweepInterval),
		gocron.NewTask(logged("live_activity_sweep", s.liveSweep)),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return nil, err
	}

	if archiver != nil {
		// Offset past the resets so the archive sees the closed month.
		if _, err := sched.NewJob(
			gocron.CronJob("30 0 1 * *", false),
			gocron.NewTask(logged("ledger_archive", s.archiveLedger)),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.sched.Start()
	log.Info("batch scheduler started")
}

func (s *Scheduler) Stop() error {
	return s.sched.Shutdown()
}

// logged wraps a job with run logging. Overlap protection comes from the
// scheduler's singleton mode: a trigger firing while the previous run is
// still in flight is rescheduled instead of stacking.
func logged(name string, fn func(context.Context) error) func() {
	return func() {
		start := time.Now()
		if err := fn(context.Background()); err != nil {
			log.WithError(err).WithField("job", name).Error("scheduled job failed")
			return
		}
		log.WithFields(log.Fields{
			"job":      name,
			"duration": time.Since(start).Round(time.Millisecond).String(),
		}).Info("scheduled job finished")
	}
}

func (s *Scheduler) weeklyReset(context.Context) error {
	res := s.DB.Model(&models.UserProgress{}).
		Where("weekly_xp <> 0").
		Update("weekly_xp", 0)
	if res.Error != nil {
		return res.Error
	}
	log.WithField("rows", res.RowsAffected).Info("weekly xp reset")
	return nil
}

func (s *Scheduler) monthlyReset(context.Context) error {
	res := s.DB.Model(&models.UserProgress{}).
		Where("monthly_xp <> 0").
		Update("monthly_xp", 0)
	if res.Error != nil {
		return res.Error
	}
	log.WithField("rows", res.RowsAffected).Info("monthly xp reset")
	return nil
}

func (s *Scheduler) liveSweep(ctx context.Context) error {
	return s.Sweep.Run(ctx)
}

func (s *Scheduler) archiveLedger(ctx context.Context) error {
	// Archive the month that just closed.
	month := time.Now().UTC().AddDate(0, -1, 0)
	return s.Archiver.ArchiveMonth(ctx, s.DB, month)
}
