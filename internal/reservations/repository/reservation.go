package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	reservationserrors "helipad/internal/reservations/errors"
	"helipad/pkg/config"
	mongotx "helipad/pkg/db/mongo"
	"helipad/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Reservations"
)

// StatusFields are written together with a status transition.
type StatusFields struct {
	UpdatedAt   time.Time
	CancelledAt *time.Time
	CancelledBy string
}

// DetailChanges are written by UpdateDetails. Nil pointers leave the field as is.
type DetailChanges struct {
	StartTime *time.Time
	EndTime   *time.Time
	Metadata  *map[string]any
	UpdatedAt time.Time
}

type ReservationRepository interface {
	Insert(ctx context.Context, reservation *model.Reservation) error
	FindByID(ctx context.Context, id string) (*model.Reservation, error)
	// FindConfirmedOverlapping returns confirmed reservations of resourceID whose
	// buffered interval conflicts with candidate, skipping excludeID.
	FindConfirmedOverlapping(ctx context.Context, resourceID string, candidate model.Interval, buffer time.Duration, excludeID string) ([]*model.Reservation, error)
	// UpdateStatus moves id from one status to another only if it is still in
	// from. Returns ErrStatusMismatch otherwise.
	UpdateStatus(ctx context.Context, id string, from, to model.Status, fields StatusFields) (*model.Reservation, error)
	// UpdateDetails rewrites interval and metadata only if the status is still from.
	UpdateDetails(ctx context.Context, id string, from model.Status, changes DetailChanges) (*model.Reservation, error)
	Find(ctx context.Context, resourceID string, filter model.ReservationFilter) ([]*model.Reservation, error)
	Count(ctx context.Context, resourceID string, filter model.ReservationFilter) (int64, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoReservationRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoReservationRepository(cfg *config.Config) ReservationRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoReservationRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// A SessionContext is returned unchanged since wrapping it drops the session.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoReservationRepository) Insert(ctx context.Context, reservation *model.Reservation) error {
	ctx, cancel := withTimeout(ctx, r.cfg.DBWriteTimeout)
	defer cancel()

	if reservation.ID == "" {
		reservation.ID = uuid.NewString()
	}
	if _, err := r.collection.InsertOne(ctx, reservation); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return reservationserrors.ErrDuplicateID
		}
		return fmt.Errorf("failed to insert reservation: %w", err)
	}
	return nil
}

func (r *mongoReservationRepository) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.DBReadTimeout)
	defer cancel()

	var reservation model.Reservation
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&reservation)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reservationserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find reservation: %w", err)
	}
	return &reservation, nil
}

func (r *mongoReservationRepository) FindConfirmedOverlapping(
	ctx context.Context,
	resourceID string,
	candidate model.Interval,
	buffer time.Duration,
	excludeID string,
) ([]*model.Reservation, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.DBReadTimeout)
	defer cancel()

	window := candidate.SearchWindow(buffer)
	filter := bson.M{
		"resource_id": resourceID,
		"status":      model.StatusConfirmed,
		"start_time":  bson.M{"$lt": window.End},
		"end_time":    bson.M{"$gt": window.Start},
	}
	if excludeID != "" {
		filter["_id"] = bson.M{"$ne": excludeID}
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to find overlapping reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var found []*model.Reservation
	if err = cursor.All(ctx, &found); err != nil {
		return nil, fmt.Errorf("failed to decode overlapping reservations: %w", err)
	}

	conflicts := found[:0]
	for _, existing := range found {
		if existing.Interval().ConflictsWith(candidate, buffer) {
			conflicts = append(conflicts, existing)
		}
	}
	return conflicts, nil
}

func (r *mongoReservationRepository) UpdateStatus(
	ctx context.Context,
	id string,
	from, to model.Status,
	fields StatusFields,
) (*model.Reservation, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.DBWriteTimeout)
	defer cancel()

	set := bson.M{
		"status":     to,
		"updated_at": fields.UpdatedAt,
	}
	if fields.CancelledAt != nil {
		set["cancelled_at"] = *fields.CancelledAt
	}
	if fields.CancelledBy != "" {
		set["cancelled_by"] = fields.CancelledBy
	}

	return r.conditionalUpdate(ctx, id, from, bson.M{"$set": set})
}

func (r *mongoReservationRepository) UpdateDetails(
	ctx context.Context,
	id string,
	from model.Status,
	changes DetailChanges,
) (*model.Reservation, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.DBWriteTimeout)
	defer cancel()

	set := bson.M{"updated_at": changes.UpdatedAt}
	if changes.StartTime != nil {
		set["start_time"] = *changes.StartTime
	}
	if changes.EndTime != nil {
		set["end_time"] = *changes.EndTime
	}
	if changes.Metadata != nil {
		set["metadata"] = *changes.Metadata
	}

	return r.conditionalUpdate(ctx, id, from, bson.M{"$set": set})
}

func (r *mongoReservationRepository) conditionalUpdate(ctx context.Context, id string, from model.Status, update bson.M) (*model.Reservation, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated model.Reservation
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id, "status": from}, update, opts).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to update reservation: %w", err)
	}

	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to check reservation existence: %w", err)
	}
	if count == 0 {
		return nil, reservationserrors.ErrNotFound
	}
	return nil, reservationserrors.ErrStatusMismatch
}

func (r *mongoReservationRepository) Find(ctx context.Context, resourceID string, filter model.ReservationFilter) ([]*model.Reservation, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.DBReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "start_time", Value: 1}}).
		SetLimit(int64(filter.Limit)).
		SetSkip(filter.Offset)

	cursor, err := r.collection.Find(ctx, buildSearchFilter(resourceID, filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var reservations []*model.Reservation
	if err = cursor.All(ctx, &reservations); err != nil {
		return nil, fmt.Errorf("failed to decode reservations: %w", err)
	}
	return reservations, nil
}

func (r *mongoReservationRepository) Count(ctx context.Context, resourceID string, filter model.ReservationFilter) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.DBReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, buildSearchFilter(resourceID, filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count reservations: %w", err)
	}
	return count, nil
}

func buildSearchFilter(resourceID string, f model.ReservationFilter) bson.M {
	filter := bson.M{"resource_id": resourceID}

	if f.From != nil {
		filter["end_time"] = bson.M{"$gt": *f.From}
	}
	if f.To != nil {
		filter["start_time"] = bson.M{"$lt": *f.To}
	}
	if len(f.Status) > 0 {
		filter["status"] = bson.M{"$in": f.Status}
	}
	if f.OwnerID != "" {
		filter["owner_id"] = f.OwnerID
	}
	return filter
}

func (r *mongoReservationRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
