package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"helipad/internal/migrations/mongo/validators"
	"helipad/internal/reservations/repository"
	"helipad/internal/settings"
	"helipad/pkg/logger"
	"helipad/pkg/model"
)

var (
	ReservationsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "resource_id", Value: 1},
			{Key: "status", Value: 1},
			{Key: "start_time", Value: 1},
			{Key: "end_time", Value: 1},
		}},
		{Keys: bson.D{
			{Key: "owner_id", Value: 1},
			{Key: "start_time", Value: 1},
		}},
	}

	// Mongo reaps lock documents once expires_at has passed.
	LocksIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}
)

type collectionDef struct {
	Indexes   []mongo.IndexModel
	Validator bson.M
}

// RunMigration creates the collections, validators and indexes the service
// needs and seeds the settings document for seed.ResourceID when missing.
func RunMigration(ctx context.Context, client *mongo.Client, dbName string, seed *model.Settings, log *logger.Logger) error {
	db := client.Database(dbName)
	log.Info("Running helipad Mongo migrations", "database", dbName)

	collections := map[string]collectionDef{
		repository.CollectionName: {
			Indexes:   ReservationsIndexes,
			Validator: validators.ReservationValidator,
		},
		repository.LockCollectionName: {
			Indexes: LocksIndexes,
		},
		settings.CollectionName: {
			Validator: validators.SettingsValidator,
		},
	}

	for name, def := range collections {
		if err := ensureCollection(ctx, db, name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	if seed != nil {
		if err := seedSettings(ctx, db, seed, log); err != nil {
			return fmt.Errorf("failed to seed settings: %w", err)
		}
	}

	log.Info("All migrations applied successfully")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection()
		if validator != nil {
			opts.SetValidator(validator)
		}
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	if validator == nil {
		return nil
	}
	log.Info("Collection exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	if len(models) == 0 {
		return nil
	}
	coll := db.Collection(name)
	if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "count", len(models))
	return nil
}

// seedSettings inserts seed only if no document exists for its resource, so
// operator edits survive re-runs.
func seedSettings(ctx context.Context, db *mongo.Database, seed *model.Settings, log *logger.Logger) error {
	if err := settings.Validate(seed); err != nil {
		return err
	}

	raw, err := bson.Marshal(seed)
	if err != nil {
		return err
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return err
	}
	delete(doc, "_id")

	coll := db.Collection(settings.CollectionName)
	res, err := coll.UpdateOne(ctx,
		bson.M{"_id": seed.ResourceID},
		bson.M{"$setOnInsert": doc},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return err
	}
	if res.UpsertedCount > 0 {
		log.Info("Seeded default settings", "resource_id", seed.ResourceID)
	} else {
		log.Info("Settings already present, leaving untouched", "resource_id", seed.ResourceID)
	}
	return nil
}
