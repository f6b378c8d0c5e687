package store

import (
	"database/sql"
	"testing"

	"github.com/encero/chores-tracker-sub000/internal/database"
	"github.com/encero/chores-tracker-sub000/internal/model"
	"github.com/encero/chores-tracker-sub000/internal/recurrence"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func mustChild(t *testing.T, db *sql.DB, name string) *model.Child {
	t.Helper()
	c, err := NewChildStore(db).Create(name, "#3B82F6", "")
	if err != nil {
		t.Fatalf("create child %s: %v", name, err)
	}
	return c
}

func mustSchedule(t *testing.T, db *sql.DB, joined bool, reward int64, childIDs ...int64) *model.ScheduledChore {
	t.Helper()
	tmpl, err := NewTemplateStore(db).Create("Dishes", "", "", reward)
	if err != nil {
		t.Fatalf("create template: %v", err)
	}
	sc, err := NewScheduleStore(db).Create(ScheduleParams{
		TemplateID: tmpl.ID,
		Reward:     reward,
		IsJoined:   joined,
		Recurrence: recurrence.Rule{Type: recurrence.Daily, StartDate: "2024-01-01"},
		ChildIDs:   childIDs,
	})
	if err != nil {
		t.Fatalf("create schedule: %v", err)
	}
	return sc
}
