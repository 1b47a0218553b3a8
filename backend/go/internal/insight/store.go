package insight

import (
	"context"
	"fmt"
	"time"

	"Minerva/backend/go/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// QueryFilter 描述了洞察查询的过滤条件，零值字段不参与过滤。
type QueryFilter struct {
	GoalID *uint              // 只返回 affected_goals 包含该目标的洞察
	Since  time.Time          // 只返回该时刻之后创建的洞察（回看窗口）
	Kind   models.InsightKind // 只返回指定来源的洞察
	Limit  int                // 返回条数上限，0 表示不限制
}

// Store defines the interface for insight persistence.
// Inserts are append-only; computed insights are never updated in place.
type Store interface {
	Insert(ctx context.Context, record *models.InsightRecord) (string, error)
	Query(ctx context.Context, userID string, filter QueryFilter) ([]*models.InsightRecord, error)
}

// MongoStore is an implementation of Store using MongoDB.
type MongoStore struct {
	collection *mongo.Collection
}

// NewMongoStore creates a new MongoStore.
func NewMongoStore(db *mongo.Database, collectionName string) *MongoStore {
	return &MongoStore{
		collection: db.Collection(collectionName),
	}
}

// Insert appends a new insight record and returns its id.
func (s *MongoStore) Insert(ctx context.Context, record *models.InsightRecord) (string, error) {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	if _, err := s.collection.InsertOne(ctx, record); err != nil {
		return "", fmt.Errorf("failed to insert insight record: %w", err)
	}
	return record.ID, nil
}

// Query retrieves insight records for a user, newest first.
func (s *MongoStore) Query(ctx context.Context, userID string, filter QueryFilter) ([]*models.InsightRecord, error) {
	query := bson.M{"user_id": userID}
	if filter.GoalID != nil {
		query["affected_goals"] = *filter.GoalID
	}
	if !filter.Since.IsZero() {
		query["created_at"] = bson.M{"$gte": filter.Since}
	}
	if filter.Kind != "" {
		query["kind"] = filter.Kind
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := s.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query insight records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*models.InsightRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode insight records: %w", err)
	}
	return records, nil
}
