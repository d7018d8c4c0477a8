package outbox

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	appoutbox "github.com/slogsolutions/WebBuyer/internal/app/outbox"
)

// MongoStore persists outbox records next to the aggregates that
// produce them. Claims go through FindOneAndUpdate so concurrent
// workers never drain the same record twice.
type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	col := db.Collection("app_outbox")
	idx := mongo.IndexModel{Keys: bson.D{{Key: "state", Value: 1}, {Key: "next_attempt_at", Value: 1}}}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &MongoStore{col: col}
}

func (s *MongoStore) Add(ctx context.Context, rec appoutbox.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	_, err := s.col.InsertOne(ctx, newRecordDocument(rec))
	if err != nil && mongo.IsDuplicateKeyError(err) {
		// Same handoff recorded twice; the first write wins.
		return nil
	}
	return err
}

func (s *MongoStore) Claim(ctx context.Context, now time.Time, limit int) ([]appoutbox.Record, error) {
	filter := bson.M{
		"state":           string(appoutbox.StateNew),
		"next_attempt_at": bson.M{"$lte": now},
	}
	update := bson.M{"$set": bson.M{"state": string(appoutbox.StateClaimed), "updated_at": now}}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetReturnDocument(options.After)

	claimed := make([]appoutbox.Record, 0, limit)
	for limit <= 0 || len(claimed) < limit {
		var doc recordDocument
		err := s.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
		if err != nil {
			if err == mongo.ErrNoDocuments {
				break
			}
			return claimed, err
		}
		claimed = append(claimed, doc.toRecord())
	}
	return claimed, nil
}

func (s *MongoStore) MarkSent(ctx context.Context, id string, now time.Time) error {
	update := bson.M{"$set": bson.M{"state": string(appoutbox.StateSent), "updated_at": now}}
	res, err := s.col.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return appoutbox.ErrNotFound
	}
	return nil
}

func (s *MongoStore) Retry(ctx context.Context, id string, retryAt time.Time, cause string) error {
	update := bson.M{
		"$set": bson.M{
			"state":           string(appoutbox.StateNew),
			"next_attempt_at": retryAt,
			"last_error":      cause,
			"updated_at":      retryAt,
		},
		"$inc": bson.M{"attempts": 1},
	}
	res, err := s.col.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return appoutbox.ErrNotFound
	}
	return nil
}

func (s *MongoStore) Fail(ctx context.Context, id string, now time.Time, cause string) error {
	update := bson.M{"$set": bson.M{
		"state":      string(appoutbox.StateFailed),
		"last_error": cause,
		"updated_at": now,
	}}
	res, err := s.col.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return appoutbox.ErrNotFound
	}
	return nil
}

type recordDocument struct {
	ID          string    `bson:"_id"`
	Topic       string    `bson:"topic"`
	Key         string    `bson:"key"`
	Payload     []byte    `bson:"payload"`
	State       string    `bson:"state"`
	Attempts    int       `bson:"attempts"`
	NextAttempt time.Time `bson:"next_attempt_at"`
	LastError   string    `bson:"last_error,omitempty"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func newRecordDocument(rec appoutbox.Record) recordDocument {
	return recordDocument{
		ID:          rec.ID,
		Topic:       rec.Topic,
		Key:         rec.Key,
		Payload:     rec.Payload,
		State:       string(rec.State),
		Attempts:    rec.Attempts,
		NextAttempt: rec.NextAttemptAt.UTC(),
		LastError:   rec.LastError,
		CreatedAt:   rec.CreatedAt.UTC(),
		UpdatedAt:   rec.UpdatedAt.UTC(),
	}
}

func (d recordDocument) toRecord() appoutbox.Record {
	return appoutbox.Record{
		ID:            d.ID,
		Topic:         d.Topic,
		Key:           d.Key,
		Payload:       d.Payload,
		State:         appoutbox.State(d.State),
		Attempts:      d.Attempts,
		NextAttemptAt: d.NextAttempt.UTC(),
		LastError:     d.LastError,
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
	}
}

var _ appoutbox.Store = (*MongoStore)(nil)
