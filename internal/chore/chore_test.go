package chore

import (
	"context"
	"database/sql"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/encero/chores-tracker-sub000/internal/database"
	"github.com/encero/chores-tracker-sub000/internal/model"
	"github.com/encero/chores-tracker-sub000/internal/recurrence"
	"github.com/encero/chores-tracker-sub000/internal/store"
)

type fixture struct {
	db        *sql.DB
	children  *store.ChildStore
	templates *store.TemplateStore
	schedules *store.ScheduleStore
	instances *store.InstanceStore
	ledger    *store.LedgerStore
	service   *Service
	generator *Generator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.DiscardHandler)
	f := &fixture{
		db:        db,
		children:  store.NewChildStore(db),
		templates: store.NewTemplateStore(db),
		schedules: store.NewScheduleStore(db),
		instances: store.NewInstanceStore(db),
		ledger:    store.NewLedgerStore(db),
	}
	f.service = NewService(f.children, f.templates, f.schedules, f.instances, logger)
	f.generator = NewGenerator(f.schedules, f.instances, logger)
	return f
}

func (f *fixture) child(t *testing.T, name string) int64 {
	t.Helper()
	c, err := f.children.Create(name, "#3B82F6", "")
	require.NoError(t, err)
	return c.ID
}

func (f *fixture) schedule(t *testing.T, rule recurrence.Rule, joined bool, reward int64, childIDs ...int64) *model.ScheduledChore {
	t.Helper()
	tmpl, err := f.templates.Create("Dishes", "", "", reward)
	require.NoError(t, err)
	sc, err := f.service.CreateSchedule(context.Background(), store.ScheduleParams{
		TemplateID: tmpl.ID,
		Reward:     reward,
		IsJoined:   joined,
		Recurrence: rule,
		ChildIDs:   childIDs,
	})
	require.NoError(t, err)
	return sc
}

func (f *fixture) instance(t *testing.T, sc *model.ScheduledChore, date string) *model.ChoreInstance {
	t.Helper()
	inst, _, err := f.instances.InsertIfAbsent(sc, date)
	require.NoError(t, err)
	return inst
}

func (f *fixture) balance(t *testing.T, childID int64) int64 {
	t.Helper()
	c, err := f.children.GetByID(childID)
	require.NoError(t, err)
	return c.Balance
}

var daily = recurrence.Rule{Type: recurrence.Daily, StartDate: "2024-01-01"}
