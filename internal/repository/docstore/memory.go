package docstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

// MemoryStore 进程内文档库，本地开发和测试使用。
// 文档以 BSON 形式保存，读写语义与 Mongo 后端保持一致。
type MemoryStore struct {
	mu    sync.RWMutex
	docs  map[string]map[string]bson.M
	order map[string][]string // 写入顺序
	clock func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:  make(map[string]map[string]bson.M),
		order: make(map[string][]string),
		clock: time.Now,
	}
}

// WithClock 替换服务端时钟（测试用）
func (s *MemoryStore) WithClock(clock func() time.Time) *MemoryStore {
	s.clock = clock
	return s
}

// Now 精确到毫秒，与 BSON DateTime 一致
func (s *MemoryStore) Now() time.Time {
	return s.clock().UTC().Truncate(time.Millisecond)
}

func (s *MemoryStore) Get(_ context.Context, collection, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.docs[collection][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return toDocument(m)
}

func (s *MemoryStore) Set(_ context.Context, collection, id string, doc any) error {
	m, err := ToM(doc)
	if err != nil {
		return err
	}
	m["_id"] = id

	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(collection, id, m)
	return nil
}

func (s *MemoryStore) Insert(_ context.Context, collection string, doc any) (string, error) {
	m, err := ToM(doc)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	m["_id"] = id

	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(collection, id, m)
	return id, nil
}

func (s *MemoryStore) put(collection, id string, m bson.M) {
	coll, ok := s.docs[collection]
	if !ok {
		coll = make(map[string]bson.M)
		s.docs[collection] = coll
	}
	if _, exists := coll[id]; !exists {
		s.order[collection] = append(s.order[collection], id)
	}
	coll[id] = m
}

// Update 在写锁内对同一文档整体应用全部字段操作
func (s *MemoryStore) Update(_ context.Context, collection, id string, u Update) error {
	if u.IsEmpty() {
		return fmt.Errorf("%w: empty update", ErrInvalidQuery)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.docs[collection][id]
	if !ok {
		return ErrNotFound
	}
	// 先在副本上操作，出错时不留下半写状态
	next, err := cloneM(cur)
	if err != nil {
		return err
	}
	if err = applyUpdate(next, u); err != nil {
		return err
	}
	s.docs[collection][id] = next
	return nil
}

func (s *MemoryStore) Find(_ context.Context, q Query) ([]Document, error) {
	if q.Collection == "" {
		return nil, fmt.Errorf("%w: collection required", ErrInvalidQuery)
	}
	filters := make([]Filter, 0, len(q.Filters))
	for _, f := range q.Filters {
		v, err := normalize(f.Value)
		if err != nil {
			return nil, err
		}
		filters = append(filters, Filter{Field: f.Field, Op: f.Op, Value: v})
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]bson.M, 0)
	for _, id := range s.order[q.Collection] {
		m := s.docs[q.Collection][id]
		if matchAll(m, filters) {
			matched = append(matched, m)
		}
	}

	if q.OrderBy != "" {
		dir := q.Direction
		if dir == 0 {
			dir = Ascending
		}
		sort.SliceStable(matched, func(i, j int) bool {
			c := compareValues(matched[i][q.OrderBy], matched[j][q.OrderBy])
			if dir == Descending {
				return c > 0
			}
			return c < 0
		})
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	out := make([]Document, 0, len(matched))
	for _, m := range matched {
		d, err := toDocument(m)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Len 集合内文档数
func (s *MemoryStore) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs[collection])
}

func toDocument(m bson.M) (Document, error) {
	raw, err := bson.Marshal(m)
	if err != nil {
		return Document{}, fmt.Errorf("marshal document: %w", err)
	}
	return NewDocument(raw), nil
}

func cloneM(m bson.M) (bson.M, error) {
	return ToM(m)
}

func matchAll(m bson.M, filters []Filter) bool {
	for _, f := range filters {
		v := m[f.Field]
		switch f.Op {
		case Equal:
			if !equalValues(v, f.Value) {
				return false
			}
		case ArrayContains:
			if !arrayContains(asArray(v), f.Value) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func applyUpdate(m bson.M, u Update) error {
	for k, v := range u.Set {
		nv, err := normalize(v)
		if err != nil {
			return err
		}
		m[k] = nv
	}
	for k, delta := range u.Inc {
		cur, ok := toFloat(m[k])
		if m[k] != nil && !ok {
			return fmt.Errorf("%w: cannot increment non-numeric field %q", ErrInvalidQuery, k)
		}
		m[k] = int64(cur) + delta
	}
	for k, v := range u.AddToSet {
		nv, err := normalize(v)
		if err != nil {
			return err
		}
		arr, err := arrayField(m, k)
		if err != nil {
			return err
		}
		if !arrayContains(arr, nv) {
			arr = append(arr, nv)
		}
		m[k] = arr
	}
	for k, v := range u.Push {
		nv, err := normalize(v)
		if err != nil {
			return err
		}
		arr, err := arrayField(m, k)
		if err != nil {
			return err
		}
		m[k] = append(arr, nv)
	}
	for k, v := range u.Pull {
		nv, err := normalize(v)
		if err != nil {
			return err
		}
		arr, err := arrayField(m, k)
		if err != nil {
			return err
		}
		kept := make(bson.A, 0, len(arr))
		for _, el := range arr {
			if !pullMatches(el, nv) {
				kept = append(kept, el)
			}
		}
		m[k] = kept
	}
	return nil
}

func arrayField(m bson.M, k string) (bson.A, error) {
	v, ok := m[k]
	if !ok || v == nil {
		return bson.A{}, nil
	}
	arr := asArray(v)
	if arr == nil {
		return nil, fmt.Errorf("%w: field %q is not an array", ErrInvalidQuery, k)
	}
	return arr, nil
}
