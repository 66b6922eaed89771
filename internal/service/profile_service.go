package service

import (
	"context"
	"errors"
	"strings"

	"campus_feed/internal/model"
	"campus_feed/internal/repository/docstore"
	"campus_feed/internal/session"
)

const (
	PlaceholderDisplayName = "New Student"
	userNotFound           = "User not found"
)

// ProfileSeed 注册时提供的初始资料
type ProfileSeed struct {
	DisplayName string
	Bio         string
	Interests   []string
}

// ProfileUpdate 为 nil 的字段保持不变
type ProfileUpdate struct {
	DisplayName *string
	Bio         *string
	Interests   []string
}

type ProfileService struct {
	store docstore.Store
}

func NewProfileService(store docstore.Store) *ProfileService {
	return &ProfileService{store: store}
}

// Ensure 首次登录时创建用户资料，已存在则原样返回
func (s *ProfileService) Ensure(ctx context.Context, who session.Session, seed ProfileSeed) (*model.UserProfile, error) {
	p, err := s.Get(ctx, who.UID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	name := strings.TrimSpace(who.DisplayName)
	if name == "" {
		name = strings.TrimSpace(seed.DisplayName)
	}
	if name == "" {
		name = PlaceholderDisplayName
	}
	interests := seed.Interests
	if interests == nil {
		interests = []string{}
	}
	p = &model.UserProfile{
		UID:         who.UID,
		DisplayName: name,
		Email:       who.Email,
		Bio:         seed.Bio,
		Interests:   interests,
		IsAdmin:     false,
		CreatedAt:   s.store.Now(),
	}
	if err = s.store.Set(ctx, docstore.CollectionUsers, who.UID, p); err != nil {
		return nil, remote(err)
	}
	return p, nil
}

func (s *ProfileService) Get(ctx context.Context, uid string) (*model.UserProfile, error) {
	doc, err := s.store.Get(ctx, docstore.CollectionUsers, uid)
	if err != nil {
		return nil, storeErr(err, userNotFound)
	}
	var p model.UserProfile
	if err = doc.Decode(&p); err != nil {
		return nil, remote(err)
	}
	return &p, nil
}

// Update 修改昵称/简介/兴趣。已发布内容中的作者昵称是快照，不会随之改变
func (s *ProfileService) Update(ctx context.Context, uid string, u ProfileUpdate) (*model.UserProfile, error) {
	set := map[string]any{}
	if u.DisplayName != nil {
		name := strings.TrimSpace(*u.DisplayName)
		if name == "" {
			return nil, newError(ErrValidation, "Display name cannot be empty")
		}
		set["displayName"] = name
	}
	if u.Bio != nil {
		set["bio"] = strings.TrimSpace(*u.Bio)
	}
	if u.Interests != nil {
		set["interests"] = cleanList(u.Interests)
	}
	if len(set) == 0 {
		return nil, newError(ErrValidation, "Nothing to update")
	}
	err := s.store.Update(ctx, docstore.CollectionUsers, uid, docstore.Update{Set: set})
	observe("profile_update", err)
	if err != nil {
		return nil, storeErr(err, userNotFound)
	}
	return s.Get(ctx, uid)
}

// cleanList 去空白、去空串、去重，保持原顺序
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
