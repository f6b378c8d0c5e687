package store

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/encero/chores-tracker-sub000/internal/model"
	"github.com/encero/chores-tracker-sub000/internal/reward"
)

func TestInsertIfAbsentCreatesParticipants(t *testing.T) {
	db := setupTestDB(t)
	a := mustChild(t, db, "Anna")
	b := mustChild(t, db, "Ben")
	sc := mustSchedule(t, db, true, 1000, a.ID, b.ID)

	is := NewInstanceStore(db)
	inst, created, err := is.InsertIfAbsent(sc, "2024-01-15")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if !created {
		t.Error("expected created = true")
	}
	if inst.Status != model.InstancePending {
		t.Errorf("status = %q, want pending", inst.Status)
	}
	if !inst.IsJoined || inst.TotalReward != 1000 {
		t.Errorf("joined = %v, total = %d", inst.IsJoined, inst.TotalReward)
	}
	if len(inst.Participants) != 2 {
		t.Fatalf("participants = %d, want 2", len(inst.Participants))
	}
	if inst.Participants[0].ChildName != "Anna" {
		t.Errorf("participant[0] = %q, want Anna", inst.Participants[0].ChildName)
	}
	for _, p := range inst.Participants {
		if p.Status != model.ParticipantPending || p.Rated() {
			t.Errorf("participant %d = %+v, want pending and unrated", p.ChildID, p)
		}
	}
}

func TestInsertIfAbsentIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	a := mustChild(t, db, "Anna")
	sc := mustSchedule(t, db, false, 100, a.ID)
	is := NewInstanceStore(db)

	first, created, err := is.InsertIfAbsent(sc, "2024-01-15")
	if err != nil || !created {
		t.Fatalf("first insert: created=%v err=%v", created, err)
	}
	second, created, err := is.InsertIfAbsent(sc, "2024-01-15")
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if created {
		t.Error("expected created = false on duplicate")
	}
	if second.ID != first.ID {
		t.Errorf("id = %d, want %d", second.ID, first.ID)
	}
	if len(second.Participants) != 1 {
		t.Errorf("participants = %d, want 1", len(second.Participants))
	}
}

func TestInsertIfAbsentConcurrent(t *testing.T) {
	db := setupTestDB(t)
	a := mustChild(t, db, "Anna")
	sc := mustSchedule(t, db, false, 100, a.ID)
	is := NewInstanceStore(db)

	var wg sync.WaitGroup
	var mu sync.Mutex
	createdCount := 0
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, created, err := is.InsertIfAbsent(sc, "2024-01-15")
			if err != nil {
				t.Errorf("insert: %v", err)
				return
			}
			if created {
				mu.Lock()
				createdCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if createdCount != 1 {
		t.Errorf("created %d times, want 1", createdCount)
	}
	list, err := is.List(InstanceFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("instances = %d, want 1", len(list))
	}
}

func TestInstanceListFilters(t *testing.T) {
	db := setupTestDB(t)
	a := mustChild(t, db, "Anna")
	b := mustChild(t, db, "Ben")
	scA := mustSchedule(t, db, false, 100, a.ID)
	scB := mustSchedule(t, db, false, 100, b.ID)
	is := NewInstanceStore(db)

	for _, date := range []string{"2024-01-15", "2024-01-16"} {
		if _, _, err := is.InsertIfAbsent(scA, date); err != nil {
			t.Fatalf("insert: %v", err)
		}
		if _, _, err := is.InsertIfAbsent(scB, date); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter InstanceFilter
		want   int
	}{
		{"all", InstanceFilter{}, 4},
		{"by date", InstanceFilter{Date: "2024-01-15"}, 2},
		{"by child", InstanceFilter{ChildID: a.ID}, 2},
		{"by child and date", InstanceFilter{ChildID: b.ID, Date: "2024-01-16"}, 1},
		{"by status", InstanceFilter{Status: model.InstanceCompleted}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := is.List(tt.filter)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestSetParticipantStatusIndependent(t *testing.T) {
	db := setupTestDB(t)
	a := mustChild(t, db, "Anna")
	b := mustChild(t, db, "Ben")
	sc := mustSchedule(t, db, true, 1000, a.ID, b.ID)
	is := NewInstanceStore(db)
	inst, _, _ := is.InsertIfAbsent(sc, "2024-01-15")

	updated, err := is.SetParticipantStatus(inst.ID, a.ID, model.ParticipantDone)
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if !updated {
		t.Fatal("expected update")
	}

	got, _ := is.GetByID(inst.ID)
	if got.Participant(a.ID).Status != model.ParticipantDone {
		t.Error("Anna should be done")
	}
	if got.Participant(a.ID).DoneAt == nil {
		t.Error("Anna should have done_at")
	}
	if got.Participant(b.ID).Status != model.ParticipantPending {
		t.Error("Ben should still be pending")
	}
	if got.Status != model.InstancePending {
		t.Errorf("instance status = %q, want pending", got.Status)
	}

	if _, err := is.SetParticipantStatus(inst.ID, a.ID, model.ParticipantPending); err != nil {
		t.Fatalf("undo: %v", err)
	}
	got, _ = is.GetByID(inst.ID)
	if got.Participant(a.ID).Status != model.ParticipantPending || got.Participant(a.ID).DoneAt != nil {
		t.Errorf("Anna = %+v, want pending without done_at", got.Participant(a.ID))
	}
}

func TestApplyRatingCreditsOnce(t *testing.T) {
	db := setupTestDB(t)
	a := mustChild(t, db, "Anna")
	sc := mustSchedule(t, db, false, 1000, a.ID)
	is := NewInstanceStore(db)
	inst, _, _ := is.InsertIfAbsent(sc, "2024-01-15")
	p := inst.Participants[0]

	settle := []Settlement{{ParticipantID: p.ID, ChildID: a.ID, Quality: reward.Excellent, Earned: 1250}}
	done := &Completion{Quality: reward.Excellent, At: time.Now()}
	if err := is.ApplyRating(inst.ID, settle, done); err != nil {
		t.Fatalf("apply rating: %v", err)
	}

	err := is.ApplyRating(inst.ID, settle, nil)
	if !errors.Is(err, ErrAlreadyRated) {
		t.Errorf("second rating err = %v, want ErrAlreadyRated", err)
	}

	got, _ := is.GetByID(inst.ID)
	if got.Status != model.InstanceCompleted || got.CompletedAt == nil {
		t.Errorf("instance = %+v, want completed", got)
	}
	if got.Quality == nil || *got.Quality != reward.Excellent {
		t.Errorf("quality = %v, want excellent", got.Quality)
	}
	if e := got.Participants[0].EarnedReward; e == nil || *e != 1250 {
		t.Errorf("earned = %v, want 1250", e)
	}

	child, _ := NewChildStore(db).GetByID(a.ID)
	if child.Balance != 1250 {
		t.Errorf("balance = %d, want 1250", child.Balance)
	}
	txs, _ := NewLedgerStore(db).ListByChild(a.ID, 0)
	if len(txs) != 1 || txs[0].Kind != model.TxReward || txs[0].ParticipantID == nil {
		t.Errorf("transactions = %+v, want one reward entry", txs)
	}
}

func TestApplyRatingRollsBackOnConflict(t *testing.T) {
	db := setupTestDB(t)
	a := mustChild(t, db, "Anna")
	b := mustChild(t, db, "Ben")
	sc := mustSchedule(t, db, true, 1000, a.ID, b.ID)
	is := NewInstanceStore(db)
	inst, _, _ := is.InsertIfAbsent(sc, "2024-01-15")
	pa, pb := inst.Participant(a.ID), inst.Participant(b.ID)

	if err := is.ApplyRating(inst.ID, []Settlement{{ParticipantID: pb.ID, ChildID: b.ID, Quality: reward.Good, Earned: 500}}, nil); err != nil {
		t.Fatalf("rate ben: %v", err)
	}

	err := is.ApplyRating(inst.ID, []Settlement{
		{ParticipantID: pa.ID, ChildID: a.ID, Quality: reward.Good, Earned: 500},
		{ParticipantID: pb.ID, ChildID: b.ID, Quality: reward.Good, Earned: 500},
	}, nil)
	if !errors.Is(err, ErrAlreadyRated) {
		t.Fatalf("err = %v, want ErrAlreadyRated", err)
	}

	got, _ := is.GetByID(inst.ID)
	if got.Participant(a.ID).Rated() {
		t.Error("Anna's rating should have rolled back")
	}
	child, _ := NewChildStore(db).GetByID(a.ID)
	if child.Balance != 0 {
		t.Errorf("balance = %d, want 0", child.Balance)
	}
}

func TestApplyRatingSkipsZeroCredit(t *testing.T) {
	db := setupTestDB(t)
	a := mustChild(t, db, "Anna")
	sc := mustSchedule(t, db, false, 1000, a.ID)
	is := NewInstanceStore(db)
	inst, _, _ := is.InsertIfAbsent(sc, "2024-01-15")

	err := is.ApplyRating(inst.ID, []Settlement{{ParticipantID: inst.Participants[0].ID, ChildID: a.ID, Quality: reward.Failed}}, nil)
	if err != nil {
		t.Fatalf("apply rating: %v", err)
	}
	txs, _ := NewLedgerStore(db).ListByChild(a.ID, 0)
	if len(txs) != 0 {
		t.Errorf("transactions = %d, want 0", len(txs))
	}
}

func TestMarkMissedBefore(t *testing.T) {
	db := setupTestDB(t)
	a := mustChild(t, db, "Anna")
	sc := mustSchedule(t, db, false, 100, a.ID)
	is := NewInstanceStore(db)

	old, _, _ := is.InsertIfAbsent(sc, "2024-01-10")
	doneOld, _, _ := is.InsertIfAbsent(sc, "2024-01-11")
	today, _, _ := is.InsertIfAbsent(sc, "2024-01-15")
	if _, err := is.SetParticipantStatus(doneOld.ID, a.ID, model.ParticipantDone); err != nil {
		t.Fatalf("set done: %v", err)
	}

	n, err := is.MarkMissedBefore("2024-01-15")
	if err != nil {
		t.Fatalf("mark missed: %v", err)
	}
	if n != 1 {
		t.Errorf("marked = %d, want 1", n)
	}

	for _, tc := range []struct {
		id   int64
		want model.InstanceStatus
	}{
		{old.ID, model.InstanceMissed},
		{doneOld.ID, model.InstancePending},
		{today.ID, model.InstancePending},
	} {
		got, _ := is.GetByID(tc.id)
		if got.Status != tc.want {
			t.Errorf("instance %s status = %q, want %q", got.DueDate, got.Status, tc.want)
		}
	}

	updated, err := is.SetParticipantStatus(old.ID, a.ID, model.ParticipantDone)
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if updated {
		t.Error("missed instance should reject status changes")
	}
}
