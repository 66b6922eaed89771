package mongo

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/go-playground/assert/v2"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"campus_feed/internal/repository/docstore"
)

// 需要本地 Mongo：MONGO_TEST_URI=mongodb://127.0.0.1:27017 go test ./internal/repository/mongo
func testStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	ctx := context.Background()
	client, err := Connect(ctx, uri)
	assert.Equal(t, nil, err)
	db := client.Database("campus_feed_test_" + uuid.NewString()[:8])
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	s := NewStore(db)
	assert.Equal(t, nil, s.EnsureIndexes(ctx))
	return s
}

type row struct {
	ID      string   `bson:"_id,omitempty"`
	Tags    []string `bson:"tags"`
	Members bson.A   `bson:"members"`
	Count   int      `bson:"count"`
}

func TestStoreRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id, err := s.Insert(ctx, "rows", row{Tags: []string{"Finals"}, Members: bson.A{}})
	assert.Equal(t, nil, err)

	err = s.Update(ctx, "rows", id, docstore.Update{
		AddToSet: map[string]any{"members": bson.M{"userId": "u1"}},
		Inc:      map[string]int64{"count": 1},
	})
	assert.Equal(t, nil, err)
	err = s.Update(ctx, "rows", id, docstore.Update{Pull: map[string]any{"members": bson.M{"userId": "u1"}}})
	assert.Equal(t, nil, err)

	doc, err := s.Get(ctx, "rows", id)
	assert.Equal(t, nil, err)
	var got row
	assert.Equal(t, nil, doc.Decode(&got))
	assert.Equal(t, 1, got.Count)
	assert.Equal(t, 0, len(got.Members))

	docs, err := s.Find(ctx, docstore.Query{Collection: "rows", Filters: []docstore.Filter{docstore.Contains("tags", "Finals")}})
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, len(docs))
	assert.Equal(t, id, docs[0].ID())

	_, err = s.Get(ctx, "rows", "missing")
	assert.Equal(t, true, errors.Is(err, docstore.ErrNotFound))
	err = s.Update(ctx, "rows", "missing", docstore.Update{Inc: map[string]int64{"count": 1}})
	assert.Equal(t, true, errors.Is(err, docstore.ErrNotFound))
}
