package chore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/encero/chores-tracker-sub000/internal/model"
	"github.com/encero/chores-tracker-sub000/internal/observability"
	"github.com/encero/chores-tracker-sub000/internal/recurrence"
	"github.com/encero/chores-tracker-sub000/internal/store"
)

// Generator materialises scheduled chores into dated instances.
type Generator struct {
	schedules *store.ScheduleStore
	instances *store.InstanceStore
	logger    *slog.Logger
}

func NewGenerator(schedules *store.ScheduleStore, instances *store.InstanceStore, logger *slog.Logger) *Generator {
	return &Generator{
		schedules: schedules,
		instances: instances,
		logger:    logger,
	}
}

// Result summarises one GenerateForDate run.
type Result struct {
	RunID       string `json:"run_id"`
	Date        string `json:"date"`
	Evaluated   int    `json:"evaluated"`
	Created     int    `json:"created"`
	Skipped     int    `json:"skipped"`
	Deactivated int    `json:"deactivated"`
}

func checkDate(date string) error {
	if _, err := time.Parse(recurrence.DateLayout, date); err != nil {
		return fmt.Errorf("%w: date must be YYYY-MM-DD, got %q", ErrInvalidInput, date)
	}
	return nil
}

// GenerateForDate creates the instances due on date for every active,
// non-optional schedule. Instances that already exist are left alone, so
// repeated or overlapping runs for the same date are harmless. A failure on
// one schedule is logged and the run moves on; the returned error joins all
// such failures.
func (g *Generator) GenerateForDate(ctx context.Context, date string) (Result, error) {
	res := Result{RunID: uuid.NewString(), Date: date}
	if err := checkDate(date); err != nil {
		return res, err
	}

	schedules, err := g.schedules.ListActive()
	if err != nil {
		observability.RecordGeneration("daily", 0, true, time.Now())
		return res, fmt.Errorf("list active schedules: %w", err)
	}

	log := g.logger.With("run_id", res.RunID, "date", date)
	var errs []error
	for i := range schedules {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		sc := &schedules[i]
		if sc.IsOptional {
			continue
		}
		res.Evaluated++
		if !recurrence.ShouldCreateInstance(sc.Recurrence, date) {
			continue
		}

		_, created, deactivated, err := g.materialise(sc, date)
		if err != nil {
			log.Error("generate instance", "schedule_id", sc.ID, "error", err)
			errs = append(errs, fmt.Errorf("schedule %d: %w", sc.ID, err))
			continue
		}
		if created {
			res.Created++
		} else {
			res.Skipped++
		}
		if deactivated {
			res.Deactivated++
		}
	}

	runErr := errors.Join(errs...)
	observability.RecordGeneration("daily", res.Created, runErr != nil, time.Now())
	log.Info("generation run",
		"evaluated", res.Evaluated,
		"created", res.Created,
		"skipped", res.Skipped,
		"deactivated", res.Deactivated,
	)
	return res, runErr
}

// GenerateSchedule materialises a single schedule on date. This is how
// optional chores are picked up. It returns ErrNotFound for unknown or
// inactive schedules and ErrNotScheduled when the rule does not fire.
func (g *Generator) GenerateSchedule(ctx context.Context, scheduleID int64, date string) (*model.ChoreInstance, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if err := checkDate(date); err != nil {
		return nil, false, err
	}

	sc, err := g.schedules.GetByID(scheduleID)
	if err != nil {
		return nil, false, err
	}
	if sc == nil || !sc.IsActive {
		return nil, false, fmt.Errorf("schedule %d: %w", scheduleID, ErrNotFound)
	}
	if !recurrence.ShouldCreateInstance(sc.Recurrence, date) {
		return nil, false, fmt.Errorf("schedule %d on %s: %w", scheduleID, date, ErrNotScheduled)
	}

	inst, created, _, err := g.materialise(sc, date)
	if err != nil {
		observability.RecordGeneration("on_demand", 0, true, time.Now())
		return nil, false, err
	}
	if created {
		observability.RecordGeneration("on_demand", 1, false, time.Now())
		g.logger.Info("instance created on demand", "schedule_id", sc.ID, "date", date, "instance_id", inst.ID)
	}
	return inst, created, nil
}

func (g *Generator) materialise(sc *model.ScheduledChore, date string) (inst *model.ChoreInstance, created, deactivated bool, err error) {
	inst, created, err = g.instances.InsertIfAbsent(sc, date)
	if err != nil {
		return nil, false, false, err
	}

	if recurrence.DeactivatesAfterFiring(sc.Recurrence) {
		if err := g.schedules.SetActive(sc.ID, false); err != nil {
			return inst, created, false, err
		}
		deactivated = true
	}
	return inst, created, deactivated, nil
}

// SweepMissed marks pending instances that nobody worked on as missed once
// they are more than graceDays old relative to today.
func (g *Generator) SweepMissed(ctx context.Context, today string, graceDays int) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := checkDate(today); err != nil {
		return 0, err
	}
	if graceDays < 0 {
		graceDays = 0
	}

	cutoff := recurrence.AddDays(today, -graceDays)
	n, err := g.instances.MarkMissedBefore(cutoff)
	if err != nil {
		return 0, err
	}
	observability.RecordMissed(n)
	if n > 0 {
		g.logger.Info("instances marked missed", "before", cutoff, "count", n)
	}
	return n, nil
}
