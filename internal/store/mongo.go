package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"voice-qa-service/internal/conversation"
)

// MongoConfig holds the connection settings for the MongoDB store.
type MongoConfig struct {
	URI            string
	Database       string
	Collection     string
	ConnectRetries int
	RetryDelay     time.Duration
}

// Mongo stores records in a MongoDB collection. Status lookups depend
// on the compound (chatid, created_at desc) index created on connect.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
	logger *slog.Logger
}

// ConnectMongo connects to MongoDB, retrying transient failures, and
// ensures the indexes the status queries rely on.
func ConnectMongo(ctx context.Context, cfg MongoConfig, logger *slog.Logger) (*Mongo, error) {
	attempts := cfg.ConnectRetries
	if attempts < 1 {
		attempts = 1
	}

	var client *mongo.Client
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		client, lastErr = connectOnce(ctx, cfg.URI)
		if lastErr == nil {
			break
		}

		logger.Warn("MongoDB connection attempt failed",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			slog.String("error", lastErr.Error()),
		)

		if attempt < attempts {
			select {
			case <-time.After(cfg.RetryDelay):
			case <-ctx.Done():
				return nil, fmt.Errorf("store: connect to mongodb: %w", ctx.Err())
			}
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("store: connect to mongodb after %d attempts: %w", attempts, lastErr)
	}

	m := &Mongo{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
		logger: logger,
	}

	if err := m.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	logger.Info("Connected to MongoDB",
		slog.String("database", cfg.Database),
		slog.String("collection", cfg.Collection),
	)

	return m, nil
}

// connectOnce performs a single connect-and-ping cycle.
func connectOnce(ctx context.Context, uri string) (*mongo.Client, error) {
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(cctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	if err := client.Ping(cctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return client, nil
}

// ensureIndexes creates the compound index backing the latest-first
// lookups per conversation.
func (m *Mongo) ensureIndexes(ctx context.Context) error {
	_, err := m.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "chatid", Value: 1},
			{Key: "created_at", Value: -1},
		},
	})
	if err != nil {
		return fmt.Errorf("store: create indexes: %w", err)
	}
	return nil
}

// Create inserts rec, stamping its ID and timestamps, and returns the
// generated document ID.
func (m *Mongo) Create(ctx context.Context, rec *conversation.QARecord) (string, error) {
	now := time.Now().UTC()
	rec.ID = primitive.NewObjectID()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	if _, err := m.coll.InsertOne(ctx, rec); err != nil {
		return "", fmt.Errorf("store: insert record: %w", err)
	}

	return rec.ID.Hex(), nil
}

// FindByID fetches a single record by its document ID.
func (m *Mongo) FindByID(ctx context.Context, id string) (*conversation.QARecord, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, conversation.NewError(conversation.ErrorNotFound, "record not found", err)
	}

	var rec conversation.QARecord
	err = m.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, conversation.NewError(conversation.ErrorNotFound, "record not found", err)
	}
	if err != nil {
		return nil, fmt.Errorf("store: find record: %w", err)
	}

	return &rec, nil
}

// FindLatest returns the most recent record of a conversation, or nil
// when the conversation has none.
func (m *Mongo) FindLatest(ctx context.Context, conversationID string) (*conversation.QARecord, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

	var rec conversation.QARecord
	err := m.coll.FindOne(ctx, bson.M{"chatid": conversationID}, opts).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: find latest record: %w", err)
	}

	return &rec, nil
}

// FindByConversation returns every record of a conversation, newest
// first.
func (m *Mongo) FindByConversation(ctx context.Context, conversationID string) ([]conversation.QARecord, error) {
	return m.find(ctx, bson.M{"chatid": conversationID})
}

// FindAll returns every stored record, newest first.
func (m *Mongo) FindAll(ctx context.Context) ([]conversation.QARecord, error) {
	return m.find(ctx, bson.M{})
}

func (m *Mongo) find(ctx context.Context, filter bson.M) ([]conversation.QARecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := m.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("store: find records: %w", err)
	}
	defer cursor.Close(ctx)

	records := make([]conversation.QARecord, 0)
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("store: decode records: %w", err)
	}

	return records, nil
}

// UpdateAnswer sets the answer, state and failure reason of an existing
// record and bumps its update time. Question and creation time stay
// untouched.
func (m *Mongo) UpdateAnswer(ctx context.Context, id string, answer string, state conversation.AnswerState, failureReason string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return conversation.NewError(conversation.ErrorNotFound, "record not found", err)
	}

	update := bson.M{"$set": bson.M{
		"answer":         answer,
		"state":          state,
		"failure_reason": failureReason,
		"updated_at":     time.Now().UTC(),
	}}

	res, err := m.coll.UpdateByID(ctx, oid, update)
	if err != nil {
		return fmt.Errorf("store: update record: %w", err)
	}
	if res.MatchedCount == 0 {
		return conversation.NewError(conversation.ErrorNotFound, "record not found", nil)
	}

	return nil
}

// DeleteAll removes every record and returns how many were deleted.
func (m *Mongo) DeleteAll(ctx context.Context) (int64, error) {
	res, err := m.coll.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("store: delete records: %w", err)
	}

	return res.DeletedCount, nil
}

// Ping verifies the MongoDB connection is alive.
func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

// Close disconnects from MongoDB.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
