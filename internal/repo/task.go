package repo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/boardlock/boardlock/internal/model"
)

var (
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("conflict")
)

const (
	tasksCollection = "tasks"
	idempCollection = "idempotency_keys"
)

// taskDoc is the persisted shape; the ObjectID never leaves the repo in
// native form.
type taskDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Board       string             `bson:"board"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Status      model.Status       `bson:"status"`
	Revision    int64              `bson:"revision"`
	CreatedAt   time.Time          `bson:"createdAt"`
}

func (d taskDoc) toModel() model.Task {
	return model.Task{
		ID:          d.ID.Hex(),
		Board:       d.Board,
		Title:       d.Title,
		Description: d.Description,
		Status:      d.Status,
		Revision:    d.Revision,
		CreatedAt:   d.CreatedAt,
	}
}

type idempDoc struct {
	Key       string    `bson:"_id"`
	TaskID    string    `bson:"taskId"`
	CreatedAt time.Time `bson:"createdAt"`
}

type TaskRepo struct {
	db *mongo.Database
}

func NewTaskRepo(db *mongo.Database) *TaskRepo {
	return &TaskRepo{db: db}
}

func (r *TaskRepo) tasks() *mongo.Collection {
	return r.db.Collection(tasksCollection)
}

func (r *TaskRepo) idempKeys() *mongo.Collection {
	return r.db.Collection(idempCollection)
}

// EnsureIndexes creates the indexes the queries below lean on.
func (r *TaskRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.tasks().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "board", Value: 1}, {Key: "createdAt", Value: 1}},
	})
	if err != nil {
		return err
	}
	_, err = r.idempKeys().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: 1}},
	})
	return err
}

func (r *TaskRepo) Create(ctx context.Context, t model.Task) (model.Task, error) {
	doc := taskDoc{
		Board:       t.Board,
		Title:       t.Title,
		Description: t.Description,
		Status:      model.StatusBacklog,
		Revision:    1,
		CreatedAt:   time.Now().UTC(),
	}

	res, err := r.tasks().InsertOne(ctx, doc)
	if err != nil {
		return model.Task{}, err
	}
	doc.ID = res.InsertedID.(primitive.ObjectID)
	return doc.toModel(), nil
}

func (r *TaskRepo) Get(ctx context.Context, board, id string) (model.Task, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return model.Task{}, ErrorNotFound
	}

	var doc taskDoc
	err = r.tasks().FindOne(ctx, bson.M{"_id": oid, "board": board}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Task{}, ErrorNotFound
	}
	if err != nil {
		return model.Task{}, err
	}
	return doc.toModel(), nil
}

func (r *TaskRepo) List(ctx context.Context, board string) ([]model.Task, error) {
	// Arrival order: clients group by status themselves.
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.tasks().Find(ctx, bson.M{"board": board}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	tasks := make([]model.Task, 0)
	for cur.Next(ctx) {
		var doc taskDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		tasks = append(tasks, doc.toModel())
	}
	return tasks, cur.Err()
}

// Update applies the patch with last-write-wins semantics. A patch that
// carries a revision becomes a compare-and-swap: it matches only while the
// stored revision is unchanged, and loses with ErrorConflict otherwise.
func (r *TaskRepo) Update(ctx context.Context, board, id string, patch model.TaskPatch) (model.Task, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return model.Task{}, ErrorNotFound
	}

	filter := bson.M{"_id": oid, "board": board}
	if patch.Revision != nil {
		filter["revision"] = *patch.Revision
	}

	set := bson.M{}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}

	update := bson.M{"$inc": bson.M{"revision": 1}}
	if len(set) > 0 {
		update["$set"] = set
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc taskDoc
	err = r.tasks().FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if patch.Revision != nil {
			// Distinguish a lost CAS race from a vanished task.
			if _, getErr := r.Get(ctx, board, id); getErr == nil {
				return model.Task{}, ErrorConflict
			}
		}
		return model.Task{}, ErrorNotFound
	}
	if err != nil {
		return model.Task{}, err
	}
	return doc.toModel(), nil
}

func (r *TaskRepo) Delete(ctx context.Context, board, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrorNotFound
	}

	res, err := r.tasks().DeleteOne(ctx, bson.M{"_id": oid, "board": board})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrorNotFound
	}
	return nil
}

func (r *TaskRepo) SaveIdempotencyKey(ctx context.Context, key, taskID string) error {
	_, err := r.idempKeys().InsertOne(ctx, idempDoc{
		Key:       key,
		TaskID:    taskID,
		CreatedAt: time.Now().UTC(),
	})
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}

func (r *TaskRepo) GetIdempotencyKey(ctx context.Context, key string) (string, error) {
	var doc idempDoc
	err := r.idempKeys().FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", ErrorNotFound
	}
	if err != nil {
		return "", err
	}
	return doc.TaskID, nil
}

func (r *TaskRepo) PurgeIdempotencyKeys(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := r.idempKeys().DeleteMany(ctx, bson.M{"createdAt": bson.M{"$lt": olderThan}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *TaskRepo) GetStats(ctx context.Context, board string) (Stats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"board": board}}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	}

	cur, err := r.tasks().Aggregate(ctx, pipeline)
	if err != nil {
		return Stats{}, err
	}
	defer cur.Close(ctx)

	stats := Stats{ByStatus: make(map[model.Status]int)}
	for cur.Next(ctx) {
		var row struct {
			Status model.Status `bson:"_id"`
			Count  int          `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return Stats{}, err
		}
		stats.ByStatus[row.Status] = row.Count
		stats.TotalTasks += row.Count
	}
	return stats, cur.Err()
}
