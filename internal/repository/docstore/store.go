// Package docstore 定义远程文档库的最小能力集：按 ID 读写、生成 ID 插入、字段更新
// （原子自增、集合并入/移除、追加）以及单排序键的过滤/限量查询。
package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

const (
	CollectionUsers  = "users"
	CollectionPosts  = "posts"
	CollectionEvents = "events"
)

var (
	ErrNotFound     = errors.New("document not found")
	ErrInvalidQuery = errors.New("invalid query")
)

type Direction int

const (
	Ascending  Direction = 1
	Descending Direction = -1
)

type Operator int

const (
	Equal Operator = iota
	ArrayContains
)

type Filter struct {
	Field string
	Op    Operator
	Value any
}

// Eq 等值过滤
func Eq(field string, value any) Filter {
	return Filter{Field: field, Op: Equal, Value: value}
}

// Contains 数组包含过滤
func Contains(field string, value any) Filter {
	return Filter{Field: field, Op: ArrayContains, Value: value}
}

// Query 单集合查询；OrderBy 为空表示按写入顺序，Limit<=0 表示不限量
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    string
	Direction  Direction
	Limit      int
}

// Update 一次文档更新中的全部字段操作，作为一个整体写入
type Update struct {
	Set      map[string]any
	Inc      map[string]int64
	AddToSet map[string]any // 不存在才加入
	Push     map[string]any // 直接追加
	Pull     map[string]any // 移除相等元素；值为子文档时按字段子集匹配
}

// IsEmpty 没有任何字段操作
func (u Update) IsEmpty() bool {
	return len(u.Set) == 0 && len(u.Inc) == 0 && len(u.AddToSet) == 0 && len(u.Push) == 0 && len(u.Pull) == 0
}

// Document 一份原始 BSON 文档
type Document struct {
	raw bson.Raw
}

func NewDocument(raw bson.Raw) Document {
	return Document{raw: raw}
}

// Decode 解码到结构体
func (d Document) Decode(v any) error {
	if d.raw == nil {
		return ErrNotFound
	}
	return bson.Unmarshal(d.raw, v)
}

// ID 返回文档 _id
func (d Document) ID() string {
	v, err := d.raw.LookupErr("_id")
	if err != nil {
		return ""
	}
	s, _ := v.StringValueOK()
	return s
}

type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Set(ctx context.Context, collection, id string, doc any) error
	Insert(ctx context.Context, collection string, doc any) (string, error)
	Update(ctx context.Context, collection, id string, u Update) error
	Find(ctx context.Context, q Query) ([]Document, error)
	// Now 服务端时间，用于 createdAt 等由服务端赋值的字段
	Now() time.Time
}

// ToM 将结构体转换为 bson.M，便于补写 _id
func ToM(doc any) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	var m bson.M
	if err = bson.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return m, nil
}

// DecodeAll 批量解码查询结果
func DecodeAll[T any](docs []Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		var v T
		if err := d.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
