package feed

import (
	"testing"

	"github.com/go-playground/assert/v2"

	"campus_feed/internal/model"
)

func tagged(tags ...string) model.Post {
	return model.Post{Tags: tags}
}

func TestTrendingCountsAndOrder(t *testing.T) {
	posts := []model.Post{
		tagged("Finals", "Study"),
		tagged("Clubs"),
		tagged("Finals", "Market"),
		tagged("Study", "Finals"),
	}
	got := Trending(posts)
	assert.Equal(t, []TopicCount{
		{Tag: "Finals", Count: 3},
		{Tag: "Study", Count: 2},
		{Tag: "Clubs", Count: 1},
		{Tag: "Market", Count: 1},
	}, got)
	assert.Equal(t, "#Finals", got[0].Label())
}

func TestTrendingLimitAndTieBreak(t *testing.T) {
	posts := []model.Post{
		tagged("e", "d"),
		tagged("c", "b", "a"),
		tagged("a"),
	}
	got := Trending(posts)
	assert.Equal(t, TrendingLimit, len(got))
	assert.Equal(t, "a", got[0].Tag)
	assert.Equal(t, 2, got[0].Count)
	// 其余次数相同，按首次出现顺序
	assert.Equal(t, []string{"e", "d", "c"}, []string{got[1].Tag, got[2].Tag, got[3].Tag})

	for i := 1; i < len(got); i++ {
		assert.Equal(t, true, got[i-1].Count >= got[i].Count)
	}
}

func TestTrendingEmpty(t *testing.T) {
	assert.Equal(t, 0, len(Trending(nil)))
	assert.Equal(t, 0, len(Trending([]model.Post{tagged()})))
}
