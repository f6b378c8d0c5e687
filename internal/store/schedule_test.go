package store

import (
	"testing"
	"time"

	"github.com/encero/chores-tracker-sub000/internal/recurrence"
)

func TestScheduleCreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	a := mustChild(t, db, "Anna")
	b := mustChild(t, db, "Ben")

	tmpl, err := NewTemplateStore(db).Create("Vacuum", "Living room", "🧹", 500)
	if err != nil {
		t.Fatalf("create template: %v", err)
	}

	ss := NewScheduleStore(db)
	sc, err := ss.Create(ScheduleParams{
		TemplateID: tmpl.ID,
		Reward:     600,
		IsJoined:   true,
		Recurrence: recurrence.Rule{
			Type:      recurrence.Custom,
			Days:      []time.Weekday{time.Tuesday, time.Thursday},
			StartDate: "2024-01-01",
			EndDate:   "2024-06-30",
		},
		ChildIDs: []int64{b.ID, a.ID},
	})
	if err != nil {
		t.Fatalf("create schedule: %v", err)
	}

	if sc.Title != "Vacuum" {
		t.Errorf("title = %q, want %q", sc.Title, "Vacuum")
	}
	if !sc.IsJoined || !sc.IsActive || sc.IsOptional {
		t.Errorf("flags = joined %v active %v optional %v", sc.IsJoined, sc.IsActive, sc.IsOptional)
	}
	if sc.Recurrence.Type != recurrence.Custom || len(sc.Recurrence.Days) != 2 {
		t.Errorf("recurrence = %+v", sc.Recurrence)
	}
	if sc.Recurrence.EndDate != "2024-06-30" {
		t.Errorf("end date = %q, want %q", sc.Recurrence.EndDate, "2024-06-30")
	}
	if len(sc.ChildIDs) != 2 || sc.ChildIDs[0] != b.ID || sc.ChildIDs[1] != a.ID {
		t.Errorf("child ids = %v, want [%d %d]", sc.ChildIDs, b.ID, a.ID)
	}
}

func TestScheduleListActive(t *testing.T) {
	db := setupTestDB(t)
	a := mustChild(t, db, "Anna")
	first := mustSchedule(t, db, false, 100, a.ID)
	second := mustSchedule(t, db, false, 200, a.ID)

	ss := NewScheduleStore(db)
	if err := ss.SetActive(first.ID, false); err != nil {
		t.Fatalf("set active: %v", err)
	}

	active, err := ss.ListActive()
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 || active[0].ID != second.ID {
		t.Fatalf("active = %+v, want only schedule %d", active, second.ID)
	}
	if len(active[0].ChildIDs) != 1 {
		t.Errorf("child ids = %v, want one child", active[0].ChildIDs)
	}

	all, err := ss.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("len(all) = %d, want 2", len(all))
	}
}

func TestScheduleUpdateReplacesChildren(t *testing.T) {
	db := setupTestDB(t)
	a := mustChild(t, db, "Anna")
	b := mustChild(t, db, "Ben")
	sc := mustSchedule(t, db, false, 100, a.ID)

	ss := NewScheduleStore(db)
	updated, err := ss.Update(sc.ID, ScheduleParams{
		TemplateID: sc.TemplateID,
		Reward:     300,
		Recurrence: recurrence.Rule{Type: recurrence.Once, StartDate: "2024-02-01"},
		ChildIDs:   []int64{b.ID},
		IsOptional: true,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Reward != 300 || !updated.IsOptional {
		t.Errorf("updated = %+v", updated)
	}
	if updated.Recurrence.EndDate != "" {
		t.Errorf("end date = %q, want empty", updated.Recurrence.EndDate)
	}
	if len(updated.ChildIDs) != 1 || updated.ChildIDs[0] != b.ID {
		t.Errorf("child ids = %v, want [%d]", updated.ChildIDs, b.ID)
	}
}

func TestScheduleDeleteCascadesInstances(t *testing.T) {
	db := setupTestDB(t)
	a := mustChild(t, db, "Anna")
	sc := mustSchedule(t, db, false, 100, a.ID)

	is := NewInstanceStore(db)
	inst, _, err := is.InsertIfAbsent(sc, "2024-01-15")
	if err != nil {
		t.Fatalf("insert instance: %v", err)
	}

	if err := NewScheduleStore(db).Delete(sc.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, err := is.GetByID(inst.ID)
	if err != nil {
		t.Fatalf("get instance: %v", err)
	}
	if got != nil {
		t.Error("expected instance to be deleted with its schedule")
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM chore_participants`).Scan(&n); err != nil {
		t.Fatalf("count participants: %v", err)
	}
	if n != 0 {
		t.Errorf("participants = %d, want 0", n)
	}
}
