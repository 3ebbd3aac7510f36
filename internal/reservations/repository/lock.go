package repository

import (
	"context"
	"fmt"
	"time"

	reservationserrors "helipad/internal/reservations/errors"
	"helipad/pkg/config"
	"helipad/pkg/logger"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	LockCollectionName = "Reservation_locks"

	lockRetryInitial = 10 * time.Millisecond
	lockRetryMax     = 200 * time.Millisecond
	lockReleaseWait  = 5 * time.Second
)

// SlotLocker serialises check-then-write sequences per resource. The returned
// release func must be called exactly once.
type SlotLocker interface {
	Acquire(ctx context.Context, resourceID string) (release func(), err error)
}

func LockID(resourceID string) string {
	return "reservation_lock_" + resourceID
}

type lockDocument struct {
	ID        string    `bson:"_id"`
	Owner     string    `bson:"owner"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}

// mongoSlotLocker is an advisory lock built on a unique _id. A duplicate key
// on insert means another holder exists; expired holders are taken over.
type mongoSlotLocker struct {
	collection  *mongo.Collection
	ttl         time.Duration
	waitTimeout time.Duration
	log         *logger.Logger
}

func NewMongoSlotLocker(cfg *config.Config) SlotLocker {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSlotLocker{
		collection:  db.Collection(LockCollectionName),
		ttl:         cfg.LockTTL,
		waitTimeout: cfg.LockWaitTimeout,
		log:         cfg.Log.Component("slot_lock"),
	}
}

func (l *mongoSlotLocker) Acquire(ctx context.Context, resourceID string) (func(), error) {
	lockID := LockID(resourceID)
	owner := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, l.waitTimeout)
	defer cancel()

	backoff := lockRetryInitial
	for {
		acquired, err := l.tryAcquire(ctx, lockID, owner)
		if err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("failed to acquire slot lock: %w", err)
		}
		if acquired {
			return func() { l.release(lockID, owner) }, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", reservationserrors.ErrLockTimeout, resourceID)
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, lockRetryMax)
	}
}

func (l *mongoSlotLocker) tryAcquire(ctx context.Context, lockID, owner string) (bool, error) {
	now := time.Now().UTC()
	doc := lockDocument{
		ID:        lockID,
		Owner:     owner,
		ExpiresAt: now.Add(l.ttl),
		CreatedAt: now,
	}

	_, err := l.collection.InsertOne(ctx, doc)
	if err == nil {
		return true, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return false, err
	}

	// The TTL monitor runs about once a minute, so an expired holder may still
	// be present. Take it over atomically.
	result, err := l.collection.UpdateOne(ctx,
		bson.M{"_id": lockID, "expires_at": bson.M{"$lte": now}},
		bson.M{"$set": bson.M{"owner": owner, "expires_at": doc.ExpiresAt, "created_at": now}},
	)
	if err != nil {
		return false, err
	}
	if result.ModifiedCount == 1 {
		l.log.Warn("Took over expired slot lock", "lock_id", lockID)
		return true, nil
	}
	return false, nil
}

func (l *mongoSlotLocker) release(lockID, owner string) {
	ctx, cancel := context.WithTimeout(context.Background(), lockReleaseWait)
	defer cancel()

	if _, err := l.collection.DeleteOne(ctx, bson.M{"_id": lockID, "owner": owner}); err != nil {
		l.log.Warn("Failed to release slot lock", "lock_id", lockID, "error", err)
	}
}
