package feed

import (
	"slices"

	"campus_feed/internal/model"
)

const TrendingLimit = 4

type TopicCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

func (t TopicCount) Label() string {
	return "#" + t.Tag
}

// Trending 统计标签出现次数，按次数降序取前 4。
// 次数相同按首次出现顺序（帖子按给定顺序，帖内按标签存储顺序）
func Trending(posts []model.Post) []TopicCount {
	idx := make(map[string]int)
	counts := make([]TopicCount, 0)
	for _, p := range posts {
		for _, t := range p.Tags {
			if i, ok := idx[t]; ok {
				counts[i].Count++
				continue
			}
			idx[t] = len(counts)
			counts = append(counts, TopicCount{Tag: t, Count: 1})
		}
	}
	slices.SortStableFunc(counts, func(a, b TopicCount) int {
		return b.Count - a.Count
	})
	if len(counts) > TrendingLimit {
		counts = counts[:TrendingLimit]
	}
	return counts
}
