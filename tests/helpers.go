package tests

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/boardlock/boardlock/internal/model"
	"github.com/boardlock/boardlock/internal/repo"
)

// SetupTestDB starts a MongoDB container and returns a database handle
// with indexes applied.
func SetupTestDB(t *testing.T) (*mongo.Database, func()) {
	t.Helper()
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	if err != nil {
		t.Fatalf("Failed to start mongo container: %v", err)
	}

	uri, err := mongoContainer.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	mongoClient, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("Failed to connect to mongo: %v", err)
	}

	if err := mongoClient.Ping(connectCtx, readpref.Primary()); err != nil {
		t.Fatalf("Failed to ping mongo: %v", err)
	}

	db := mongoClient.Database("boardlock_test")

	taskRepo := repo.NewTaskRepo(db)
	if err := taskRepo.EnsureIndexes(ctx); err != nil {
		t.Fatalf("Failed to create indexes: %v", err)
	}

	cleanup := func() {
		mongoClient.Disconnect(ctx)
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Errorf("Failed to terminate container: %v", err)
		}
	}

	return db, cleanup
}

// DropCollections clears all collections between tests.
func DropCollections(t *testing.T, db *mongo.Database) {
	t.Helper()
	ctx := context.Background()

	for _, name := range []string{"tasks", "idempotency_keys"} {
		if err := db.Collection(name).Drop(ctx); err != nil {
			t.Fatalf("Failed to drop collection %s: %v", name, err)
		}
	}
}

// SeedTasks creates count tasks on the given board.
func SeedTasks(t *testing.T, db *mongo.Database, board string, count int) []string {
	t.Helper()
	ctx := context.Background()
	taskRepo := repo.NewTaskRepo(db)

	ids := make([]string, 0, count)
	for i := 0; i < count; i++ {
		task, err := taskRepo.Create(ctx, model.Task{
			Board: board,
			Title: fmt.Sprintf("Task %d", i+1),
		})
		if err != nil {
			t.Fatalf("Failed to seed task: %v", err)
		}
		ids = append(ids, task.ID)
	}

	return ids
}

// WaitForCondition polls the condition until it holds or the timeout expires.
func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool) bool {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(100 * time.Millisecond)
	}
	return false
}
