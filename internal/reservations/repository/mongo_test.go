package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	reservationserrors "helipad/internal/reservations/errors"
	"helipad/pkg/client"
	"helipad/pkg/config"
	"helipad/pkg/db/mongo/mongotest"
	"helipad/pkg/logger"
	"helipad/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

func newMongoConfig(t *testing.T) (*config.Config, *mongotest.Database) {
	t.Helper()

	db := mongotest.New(t)
	return &config.Config{
		MongoDatabaseName: db.Name,
		Client:            &client.Client{Mongo: db.Client},
		DBReadTimeout:     5 * time.Second,
		DBWriteTimeout:    5 * time.Second,
		LockTTL:           30 * time.Second,
		LockWaitTimeout:   2 * time.Second,
		Log:               logger.Discard(),
	}, db
}

func TestMongoRepository_InsertAndFind(t *testing.T) {
	cfg, _ := newMongoConfig(t)
	repo := NewMongoReservationRepository(cfg)
	ctx := context.Background()

	r := newReservation(model.StatusPending, base, base.Add(30*time.Minute))
	r.Metadata = map[string]any{
		"notes":   "Land on pad B.\n\nPassenger needs wheelchair.",
		"contact": "  J. Doe ",
		"crew":    map[string]any{"pilot": "Dana", "seats": []any{"1A", "1B"}},
	}
	if err := repo.Insert(ctx, r); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := repo.Insert(ctx, r); !errors.Is(err, reservationserrors.ErrDuplicateID) {
		t.Errorf("second Insert() error = %v, want ErrDuplicateID", err)
	}

	got, err := repo.FindByID(ctx, r.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if got.OwnerID != r.OwnerID || got.Status != model.StatusPending || !got.StartTime.Equal(r.StartTime) || !got.EndTime.Equal(r.EndTime) {
		t.Errorf("unexpected reservation: %+v", got)
	}

	want, _ := json.Marshal(r.Metadata)
	have, err := json.Marshal(got.Metadata)
	if err != nil {
		t.Fatalf("marshal stored metadata: %v", err)
	}
	if string(want) != string(have) {
		t.Errorf("metadata = %s, want %s", have, want)
	}

	for _, id := range []string{uuid.NewString(), "not-a-uuid"} {
		if _, err := repo.FindByID(ctx, id); !errors.Is(err, reservationserrors.ErrNotFound) {
			t.Errorf("FindByID(%q) error = %v, want ErrNotFound", id, err)
		}
	}
}

func TestMongoRepository_FindConfirmedOverlapping(t *testing.T) {
	cfg, _ := newMongoConfig(t)
	repo := NewMongoReservationRepository(cfg)
	ctx := context.Background()
	buffer := 5 * time.Minute

	at := func(h, m int) time.Time { return time.Date(2030, 6, 1, h, m, 0, 0, time.UTC) }

	confirmed := newReservation(model.StatusConfirmed, at(9, 0), at(10, 0))
	pending := newReservation(model.StatusPending, at(10, 0), at(11, 0))
	elsewhere := newReservation(model.StatusConfirmed, at(10, 0), at(11, 0))
	elsewhere.ResourceID = "other-pad"
	for _, r := range []*model.Reservation{confirmed, pending, elsewhere} {
		if err := repo.Insert(ctx, r); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	tests := []struct {
		name      string
		candidate model.Interval
		excludeID string
		want      int
	}{
		{"starts inside buffer after", model.Interval{Start: at(10, 4), End: at(11, 0)}, "", 1},
		{"starts exactly at end plus buffer", model.Interval{Start: at(10, 5), End: at(11, 0)}, "", 0},
		{"ends inside buffer before", model.Interval{Start: at(8, 0), End: at(8, 56)}, "", 1},
		{"ends exactly buffer before", model.Interval{Start: at(8, 0), End: at(8, 55)}, "", 0},
		{"contained", model.Interval{Start: at(9, 15), End: at(9, 45)}, "", 1},
		{"self excluded", model.Interval{Start: at(9, 15), End: at(9, 45)}, confirmed.ID, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := repo.FindConfirmedOverlapping(ctx, "pad", tt.candidate, buffer, tt.excludeID)
			if err != nil {
				t.Fatalf("FindConfirmedOverlapping() error = %v", err)
			}
			if len(found) != tt.want {
				t.Fatalf("found %d reservations, want %d", len(found), tt.want)
			}
			if tt.want == 1 && found[0].ID != confirmed.ID {
				t.Errorf("found %s, want %s", found[0].ID, confirmed.ID)
			}
		})
	}
}

func TestMongoRepository_UpdateStatus(t *testing.T) {
	cfg, _ := newMongoConfig(t)
	repo := NewMongoReservationRepository(cfg)
	ctx := context.Background()

	r := newReservation(model.StatusPending, base, base.Add(10*time.Minute))
	if err := repo.Insert(ctx, r); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	later := base.Add(time.Hour)
	updated, err := repo.UpdateStatus(ctx, r.ID, model.StatusPending, model.StatusCancelled, StatusFields{
		UpdatedAt:   later,
		CancelledAt: &later,
		CancelledBy: "admin",
	})
	if err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	if updated.Status != model.StatusCancelled || updated.CancelledBy != "admin" || !updated.UpdatedAt.Equal(later) {
		t.Errorf("unexpected record after update: %+v", updated)
	}

	_, err = repo.UpdateStatus(ctx, r.ID, model.StatusPending, model.StatusConfirmed, StatusFields{UpdatedAt: later})
	if !errors.Is(err, reservationserrors.ErrStatusMismatch) {
		t.Errorf("stale UpdateStatus() error = %v, want ErrStatusMismatch", err)
	}

	_, err = repo.UpdateStatus(ctx, uuid.NewString(), model.StatusPending, model.StatusConfirmed, StatusFields{UpdatedAt: later})
	if !errors.Is(err, reservationserrors.ErrNotFound) {
		t.Errorf("missing UpdateStatus() error = %v, want ErrNotFound", err)
	}

	stored, err := repo.FindByID(ctx, r.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if stored.Status != model.StatusCancelled || !stored.UpdatedAt.Equal(later) {
		t.Errorf("losing write changed the record: %+v", stored)
	}
}

func TestMongoRepository_UpdateStatusSingleWinner(t *testing.T) {
	cfg, _ := newMongoConfig(t)
	repo := NewMongoReservationRepository(cfg)
	ctx := context.Background()

	r := newReservation(model.StatusPending, base, base.Add(10*time.Minute))
	if err := repo.Insert(ctx, r); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	const writers = 8
	var wins, mismatches int32
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.UpdateStatus(ctx, r.ID, model.StatusPending, model.StatusConfirmed, StatusFields{UpdatedAt: base.Add(time.Minute)})
			switch {
			case err == nil:
				atomic.AddInt32(&wins, 1)
			case errors.Is(err, reservationserrors.ErrStatusMismatch):
				atomic.AddInt32(&mismatches, 1)
			default:
				t.Errorf("UpdateStatus() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 || mismatches != writers-1 {
		t.Errorf("wins = %d, mismatches = %d; want 1 and %d", wins, mismatches, writers-1)
	}
}

func TestMongoRepository_UpdateDetails(t *testing.T) {
	cfg, _ := newMongoConfig(t)
	repo := NewMongoReservationRepository(cfg)
	ctx := context.Background()

	r := newReservation(model.StatusPending, base, base.Add(10*time.Minute))
	if err := repo.Insert(ctx, r); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	newEnd := base.Add(40 * time.Minute)
	meta := map[string]any{"notes": " keep  spacing "}
	updated, err := repo.UpdateDetails(ctx, r.ID, model.StatusPending, DetailChanges{
		EndTime:   &newEnd,
		Metadata:  &meta,
		UpdatedAt: base.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("UpdateDetails() error = %v", err)
	}
	if !updated.EndTime.Equal(newEnd) || !updated.StartTime.Equal(base) || updated.Metadata["notes"] != " keep  spacing " {
		t.Errorf("unexpected record after update: %+v", updated)
	}

	if _, err := repo.UpdateDetails(ctx, r.ID, model.StatusConfirmed, DetailChanges{UpdatedAt: base}); !errors.Is(err, reservationserrors.ErrStatusMismatch) {
		t.Errorf("error = %v, want ErrStatusMismatch", err)
	}
}

func TestMongoRepository_FindAndCount(t *testing.T) {
	cfg, _ := newMongoConfig(t)
	repo := NewMongoReservationRepository(cfg)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		start := base.Add(time.Duration(i) * time.Hour)
		status := model.StatusPending
		if i%2 == 0 {
			status = model.StatusConfirmed
		}
		if err := repo.Insert(ctx, newReservation(status, start, start.Add(30*time.Minute))); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	count, err := repo.Count(ctx, "pad", model.ReservationFilter{Status: []model.Status{model.StatusConfirmed}})
	if err != nil || count != 3 {
		t.Errorf("Count() = %d, %v; want 3", count, err)
	}

	from := base.Add(90 * time.Minute)
	page, err := repo.Find(ctx, "pad", model.ReservationFilter{From: &from, Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("page size = %d, want 2", len(page))
	}
	if !page[0].StartTime.Equal(base.Add(3*time.Hour)) || !page[1].StartTime.Equal(base.Add(4*time.Hour)) {
		t.Errorf("unexpected page order: %v, %v", page[0].StartTime, page[1].StartTime)
	}
}

func TestMongoSlotLocker_MutualExclusionAcrossProcesses(t *testing.T) {
	cfg, _ := newMongoConfig(t)
	// Two lockers over one collection behave like two service instances.
	lockers := []SlotLocker{NewMongoSlotLocker(cfg), NewMongoSlotLocker(cfg)}

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(locker SlotLocker) {
			defer wg.Done()
			release, err := locker.Acquire(context.Background(), "pad")
			if err != nil {
				t.Errorf("Acquire() error = %v", err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}(lockers[i%2])
	}
	wg.Wait()

	if maxInside != 1 {
		t.Errorf("max holders = %d, want 1", maxInside)
	}
}

func TestMongoSlotLocker_WaitTimeout(t *testing.T) {
	cfg, _ := newMongoConfig(t)
	cfg.LockWaitTimeout = 200 * time.Millisecond
	locker := NewMongoSlotLocker(cfg)

	release, err := locker.Acquire(context.Background(), "pad")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer release()

	if _, err := locker.Acquire(context.Background(), "pad"); !errors.Is(err, reservationserrors.ErrLockTimeout) {
		t.Errorf("second Acquire() error = %v, want ErrLockTimeout", err)
	}
}

func TestMongoSlotLocker_TakesOverExpiredLock(t *testing.T) {
	cfg, db := newMongoConfig(t)
	locks := db.Database.Collection(LockCollectionName)
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Minute)
	if _, err := locks.InsertOne(ctx, lockDocument{
		ID:        LockID("pad"),
		Owner:     "crashed-instance",
		ExpiresAt: past,
		CreatedAt: past.Add(-time.Minute),
	}); err != nil {
		t.Fatalf("seed lock: %v", err)
	}

	release, err := NewMongoSlotLocker(cfg).Acquire(ctx, "pad")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	var held lockDocument
	if err := locks.FindOne(ctx, bson.M{"_id": LockID("pad")}).Decode(&held); err != nil {
		t.Fatalf("read lock: %v", err)
	}
	if held.Owner == "crashed-instance" || !held.ExpiresAt.After(time.Now()) {
		t.Errorf("lock was not taken over: %+v", held)
	}

	release()
	if n, _ := locks.CountDocuments(ctx, bson.M{"_id": LockID("pad")}); n != 0 {
		t.Errorf("lock documents after release = %d, want 0", n)
	}
}

func TestMongoSlotLocker_ReleaseOnlyOwnLock(t *testing.T) {
	cfg, db := newMongoConfig(t)
	locks := db.Database.Collection(LockCollectionName)
	ctx := context.Background()

	release, err := NewMongoSlotLocker(cfg).Acquire(ctx, "pad")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	// Another instance took the lock over after ours expired.
	if _, err := locks.UpdateOne(ctx, bson.M{"_id": LockID("pad")}, bson.M{"$set": bson.M{"owner": "successor"}}); err != nil {
		t.Fatalf("reassign lock: %v", err)
	}
	release()

	var held lockDocument
	if err := locks.FindOne(ctx, bson.M{"_id": LockID("pad")}).Decode(&held); err != nil {
		t.Fatalf("successor lock was removed: %v", err)
	}
	if held.Owner != "successor" {
		t.Errorf("owner = %s, want successor", held.Owner)
	}
}

func TestMongoStore_ConcurrentConfirmedAdmission(t *testing.T) {
	cfg, _ := newMongoConfig(t)
	repo := NewMongoReservationRepository(cfg)
	lockers := []SlotLocker{NewMongoSlotLocker(cfg), NewMongoSlotLocker(cfg)}
	buffer := 5 * time.Minute

	const requests = 10
	var admitted int32
	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx := context.Background()
			start := base.Add(time.Duration(i) * time.Minute)
			candidate := newReservation(model.StatusConfirmed, start, start.Add(30*time.Minute))

			release, err := lockers[i%2].Acquire(ctx, "pad")
			if err != nil {
				t.Errorf("Acquire() error = %v", err)
				return
			}
			defer release()

			conflicts, err := repo.FindConfirmedOverlapping(ctx, "pad", candidate.Interval(), buffer, "")
			if err != nil {
				t.Errorf("FindConfirmedOverlapping() error = %v", err)
				return
			}
			if len(conflicts) > 0 {
				return
			}
			if err := repo.Insert(ctx, candidate); err != nil {
				t.Errorf("Insert() error = %v", err)
				return
			}
			atomic.AddInt32(&admitted, 1)
		}(i)
	}
	wg.Wait()

	if admitted != 1 {
		t.Errorf("admitted = %d, want 1", admitted)
	}
	count, err := repo.Count(context.Background(), "pad", model.ReservationFilter{Status: []model.Status{model.StatusConfirmed}})
	if err != nil || count != 1 {
		t.Errorf("confirmed count = %d, %v; want 1", count, err)
	}
}
