package docstore

import (
	"cmp"
	"fmt"
	"reflect"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// normalize 经过一次 BSON 往返，使写入值与已存储值的类型一致
func normalize(v any) (any, error) {
	raw, err := bson.Marshal(bson.M{"v": v})
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	var m bson.M
	if err = bson.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	return m["v"], nil
}

func asArray(v any) bson.A {
	switch a := v.(type) {
	case bson.A:
		return a
	case []any:
		return a
	}
	return nil
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case bson.M:
		return m, true
	case map[string]any:
		return m, true
	case bson.D:
		return m.Map(), true
	}
	return nil, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func equalValues(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
		return false
	}
	ma, okA := asMap(a)
	mb, okB := asMap(b)
	if okA && okB {
		if len(ma) != len(mb) {
			return false
		}
		for k, va := range ma {
			if !equalValues(va, mb[k]) {
				return false
			}
		}
		return true
	}
	aa, okA := a.(bson.A)
	ab, okB := b.(bson.A)
	if okA && okB {
		if len(aa) != len(ab) {
			return false
		}
		for i := range aa {
			if !equalValues(aa[i], ab[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

func arrayContains(arr bson.A, v any) bool {
	for _, el := range arr {
		if equalValues(el, v) {
			return true
		}
	}
	return false
}

// pullMatches 子文档谓词只比较谓词中出现的字段
func pullMatches(el, pred any) bool {
	pm, ok := asMap(pred)
	if !ok {
		return equalValues(el, pred)
	}
	em, ok := asMap(el)
	if !ok {
		return false
	}
	for k, pv := range pm {
		if !equalValues(em[k], pv) {
			return false
		}
	}
	return true
}

// compareValues 排序比较；缺失值最小，不同类型按类型序
func compareValues(a, b any) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		return ra - rb
	}
	switch ra {
	case 1:
		fa, _ := toFloat(a)
		fb, _ := toFloat(b)
		return cmp.Compare(fa, fb)
	case 2:
		return strings.Compare(a.(string), b.(string))
	case 3:
		return cmp.Compare(timeMillis(a), timeMillis(b))
	case 4:
		ba, bb := a.(bool), b.(bool)
		switch {
		case ba == bb:
			return 0
		case !ba:
			return -1
		default:
			return 1
		}
	}
	return 0
}

func typeRank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case int32, int64, int, float64:
		return 1
	case string:
		return 2
	case primitive.DateTime, time.Time:
		return 3
	case bool:
		return 4
	}
	return 5
}

func timeMillis(v any) int64 {
	switch t := v.(type) {
	case primitive.DateTime:
		return int64(t)
	case time.Time:
		return t.UnixMilli()
	}
	return 0
}
