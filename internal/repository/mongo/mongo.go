package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"campus_feed/internal/repository/docstore"
)

const defaultTimeout = 5 * time.Second

// Store 以 MongoDB 作为远程文档库
type Store struct {
	db      *mongo.Database
	timeout time.Duration
}

// Connect 建立连接并做一次 Ping 健康检查
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

func NewStore(db *mongo.Database) *Store {
	return &Store{db: db, timeout: defaultTimeout}
}

// EnsureIndexes 为列表查询建立排序/过滤索引
func (s *Store) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	posts := s.db.Collection(docstore.CollectionPosts)
	if _, err := posts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "tags", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "authorId", Value: 1}, {Key: "createdAt", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("posts indexes: %w", err)
	}
	events := s.db.Collection(docstore.CollectionEvents)
	if _, err := events.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "date", Value: 1}}},
		{Keys: bson.D{{Key: "department", Value: 1}, {Key: "date", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("events indexes: %w", err)
	}
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Raw()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return docstore.Document{}, docstore.ErrNotFound
		}
		return docstore.Document{}, fmt.Errorf("find %s/%s: %w", collection, id, err)
	}
	return docstore.NewDocument(raw), nil
}

func (s *Store) Set(ctx context.Context, collection, id string, doc any) error {
	m, err := docstore.ToM(doc)
	if err != nil {
		return err
	}
	m["_id"] = id

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err = s.db.Collection(collection).ReplaceOne(ctx, bson.M{"_id": id}, m, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("replace %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, collection string, doc any) (string, error) {
	m, err := docstore.ToM(doc)
	if err != nil {
		return "", err
	}
	id := primitive.NewObjectID().Hex()
	m["_id"] = id

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err = s.db.Collection(collection).InsertOne(ctx, m); err != nil {
		return "", fmt.Errorf("insert %s: %w", collection, err)
	}
	return id, nil
}

// Update 所有操作合并为一条 UpdateOne，单文档内原子
func (s *Store) Update(ctx context.Context, collection, id string, u docstore.Update) error {
	if u.IsEmpty() {
		return fmt.Errorf("%w: empty update", docstore.ErrInvalidQuery)
	}
	doc := bson.M{}
	if len(u.Set) > 0 {
		doc["$set"] = bson.M(u.Set)
	}
	if len(u.Inc) > 0 {
		inc := bson.M{}
		for k, v := range u.Inc {
			inc[k] = v
		}
		doc["$inc"] = inc
	}
	if len(u.AddToSet) > 0 {
		doc["$addToSet"] = bson.M(u.AddToSet)
	}
	if len(u.Push) > 0 {
		doc["$push"] = bson.M(u.Push)
	}
	if len(u.Pull) > 0 {
		doc["$pull"] = bson.M(u.Pull)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if res.MatchedCount == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func (s *Store) Find(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	if q.Collection == "" {
		return nil, fmt.Errorf("%w: collection required", docstore.ErrInvalidQuery)
	}
	// 对数组字段做等值匹配即为 array-contains，两种操作符在 Mongo 中写法相同
	filter := bson.M{}
	for _, f := range q.Filters {
		filter[f.Field] = f.Value
	}

	opts := options.Find()
	if q.OrderBy != "" {
		dir := q.Direction
		if dir == 0 {
			dir = docstore.Ascending
		}
		opts.SetSort(bson.D{{Key: q.OrderBy, Value: int(dir)}, {Key: "_id", Value: int(dir)}})
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	ctx, cancel := context.WithTimeout(ctx, 2*s.timeout)
	defer cancel()

	cursor, err := s.db.Collection(q.Collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", q.Collection, err)
	}
	var raws []bson.Raw
	if err = cursor.All(ctx, &raws); err != nil {
		return nil, fmt.Errorf("decode %s: %w", q.Collection, err)
	}
	out := make([]docstore.Document, 0, len(raws))
	for _, r := range raws {
		out = append(out, docstore.NewDocument(r))
	}
	return out, nil
}
