package feed

import (
	"context"

	"campus_feed/internal/model"
)

const ProfilePostLimit = 100

type ProfileSource interface {
	Get(ctx context.Context, uid string) (*model.UserProfile, error)
}

type ProfileSnapshot struct {
	Profile *model.UserProfile `json:"profile"`
	IsOwn   bool               `json:"isOwn"`
	Posts   []model.Post       `json:"posts"`
	Loading bool               `json:"loading"`
	Error   string             `json:"error,omitempty"`
}

// ProfileView 个人主页：用户资料加该作者最近的帖子
type ProfileView struct {
	core
	profiles ProfileSource
	uid      string
	viewer   Viewer
	profile  *model.UserProfile
	posts    *PostView
}

func NewProfileView(profiles ProfileSource, posts PostSource, viewer Viewer, uid string, opts ...ViewOption) *ProfileView {
	cfg := buildConfig(opts)
	postOpts := append([]ViewOption{WithLimit(ProfilePostLimit), WithAuthor(uid)}, opts...)
	v := &ProfileView{
		profiles: profiles,
		uid:      uid,
		viewer:   viewer,
		posts:    NewPostView(posts, viewer, postOpts...),
	}
	v.init(cfg.sync)
	return v
}

func (v *ProfileView) Load(ctx context.Context) error {
	gen, err := v.startLoad()
	if err != nil {
		return err
	}
	p, err := v.profiles.Get(ctx, v.uid)
	if err = v.finishLoad(gen, err, func() { v.profile = p }); err != nil {
		return err
	}
	return v.posts.Load(ctx)
}

func (v *ProfileView) Snapshot() ProfileSnapshot {
	ps := v.posts.Snapshot()
	v.mu.Lock()
	defer v.mu.Unlock()
	errMsg := v.errMsg
	if errMsg == "" {
		errMsg = ps.Error
	}
	return ProfileSnapshot{
		Profile: v.profile,
		IsOwn:   v.uid == v.viewer.UID,
		Posts:   ps.Posts,
		Loading: v.loading || ps.Loading,
		Error:   errMsg,
	}
}

func (v *ProfileView) Like(ctx context.Context, postID string) (bool, error) {
	return v.posts.Like(ctx, postID)
}

func (v *ProfileView) Comment(ctx context.Context, postID, text string) (model.Comment, error) {
	return v.posts.Comment(ctx, postID, text)
}

func (v *ProfileView) Close() {
	v.core.Close()
	v.posts.Close()
}
