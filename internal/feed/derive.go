// Package feed 由完整快照计算派生视图：搜索、标签过滤、热门话题，
// 以及"写后重新拉取"的视图编排。
package feed

import (
	"slices"
	"strings"

	"campus_feed/internal/model"
)

// PostFilter 各条件之间为 AND；空值表示不过滤
type PostFilter struct {
	Search   string
	Tag      string
	AuthorID string
}

// EventFilter 院系过滤在文档库侧完成（EventService.ListByDepartment），这里只做搜索
type EventFilter struct {
	Search string
}

func containsFold(s, term string) bool {
	return strings.Contains(strings.ToLower(s), term)
}

// FilterPosts 搜索匹配 content 或 authorName（忽略大小写），返回新切片，顺序与输入一致
func FilterPosts(posts []model.Post, f PostFilter) []model.Post {
	term := strings.ToLower(f.Search)
	out := make([]model.Post, 0, len(posts))
	for _, p := range posts {
		if term != "" && !containsFold(p.Content, term) && !containsFold(p.AuthorName, term) {
			continue
		}
		if f.Tag != "" && !p.HasTag(f.Tag) {
			continue
		}
		if f.AuthorID != "" && p.AuthorID != f.AuthorID {
			continue
		}
		out = append(out, p)
	}
	return out
}

// FilterEvents 搜索匹配 title、description 或 department
func FilterEvents(events []model.Event, f EventFilter) []model.Event {
	term := strings.ToLower(f.Search)
	out := make([]model.Event, 0, len(events))
	for _, e := range events {
		if term != "" &&
			!containsFold(e.Title, term) &&
			!containsFold(e.Description, term) &&
			!containsFold(e.Department, term) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// AllTags 全部标签去重，按首次出现顺序
func AllTags(posts []model.Post) []string {
	out := make([]string, 0)
	for _, p := range posts {
		for _, t := range p.Tags {
			if !slices.Contains(out, t) {
				out = append(out, t)
			}
		}
	}
	return out
}

// Departments 非空院系去重
func Departments(events []model.Event) []string {
	out := make([]string, 0)
	for _, e := range events {
		if e.Department != "" && !slices.Contains(out, e.Department) {
			out = append(out, e.Department)
		}
	}
	return out
}

// ParseTags "a, b,,c" -> [a b c]，不去重
func ParseTags(raw string) []string {
	out := make([]string, 0)
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
