package model

import (
	"slices"
	"time"
)

// Post 动态。AuthorName 是发帖时作者昵称的快照，不随资料修改同步
type Post struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	Content      string    `bson:"content" json:"content"`
	AuthorID     string    `bson:"authorId" json:"authorId"`
	AuthorName   string    `bson:"authorName" json:"authorName"`
	Tags         []string  `bson:"tags" json:"tags"`
	Likes        []string  `bson:"likes" json:"likes"`
	LikeCount    int       `bson:"likeCount" json:"likeCount"`
	Comments     []Comment `bson:"comments" json:"comments"`
	CommentCount int       `bson:"commentCount" json:"commentCount"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
}

type Comment struct {
	UserID    string    `bson:"userId" json:"userId"`
	UserName  string    `bson:"userName" json:"userName"`
	Text      string    `bson:"text" json:"text"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// LikedBy 判断用户是否已点赞
func (p *Post) LikedBy(userID string) bool {
	return slices.Contains(p.Likes, userID)
}

// HasTag 精确匹配标签
func (p *Post) HasTag(tag string) bool {
	return slices.Contains(p.Tags, tag)
}
