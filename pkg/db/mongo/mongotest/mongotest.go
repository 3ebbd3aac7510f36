// Package mongotest connects tests to a real MongoDB. Tests using it are
// skipped unless MONGO_URI is set.
package mongotest

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	helipadclient "helipad/pkg/client"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	EnvMongoURI = "MONGO_URI"

	connectTimeout = 10 * time.Second
	cleanupTimeout = 10 * time.Second
)

// Database is a throwaway database dropped when the test ends.
type Database struct {
	Client   *mongo.Client
	Database *mongo.Database
	Name     string
}

func New(t testing.TB) *Database {
	t.Helper()

	uri := os.Getenv(EnvMongoURI)
	if uri == "" {
		t.Skipf("%s not set, skipping MongoDB test", EnvMongoURI)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, helipadclient.MongoClientOptions(uri))
	if err != nil {
		t.Fatalf("failed to connect to MongoDB: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		t.Fatalf("failed to ping MongoDB: %v", err)
	}

	name := "helipad_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	db := &Database{
		Client:   client,
		Database: client.Database(name),
		Name:     name,
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer cancel()
		if err := db.Database.Drop(ctx); err != nil {
			t.Logf("warning: failed to drop %s: %v", name, err)
		}
		if err := client.Disconnect(ctx); err != nil {
			t.Logf("warning: failed to disconnect from MongoDB: %v", err)
		}
	})
	return db
}

// RequireReplicaSet skips the test when the server cannot run
// multi-document transactions.
func (d *Database) RequireReplicaSet(t testing.TB) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	var hello struct {
		SetName string `bson:"setName"`
		Msg     string `bson:"msg"`
	}
	if err := d.Client.Database("admin").RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello); err != nil {
		t.Fatalf("failed to run hello: %v", err)
	}
	if hello.SetName == "" && hello.Msg != "isdbgrid" {
		t.Skip("MongoDB is not a replica set, skipping transactional test")
	}
}

// CreateCollection creates name up front; transactions cannot create
// collections implicitly on older servers.
func (d *Database) CreateCollection(t testing.TB, name string) *mongo.Collection {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := d.Database.CreateCollection(ctx, name); err != nil {
		t.Fatalf("failed to create collection %s: %v", name, err)
	}
	return d.Database.Collection(name)
}
