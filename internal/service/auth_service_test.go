package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/go-playground/assert/v2"

	"campus_feed/internal/model"
	"campus_feed/internal/pkg"
	"campus_feed/internal/repository/mysql"
	"campus_feed/internal/repository/redis"
	"campus_feed/internal/session"
)

type memAccounts struct {
	mu      sync.Mutex
	byEmail map[string]model.Account
}

func (m *memAccounts) Create(_ context.Context, acc *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.byEmail == nil {
		m.byEmail = map[string]model.Account{}
	}
	if _, ok := m.byEmail[acc.Email]; ok {
		return mysql.ErrAccountExists
	}
	m.byEmail[acc.Email] = *acc
	return nil
}

func (m *memAccounts) FindByEmail(_ context.Context, email string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.byEmail[email]
	if !ok {
		return nil, mysql.ErrAccountNotFound
	}
	return &acc, nil
}

type memTokens struct {
	mu      sync.Mutex
	tokens  map[string]string
	refresh map[string]string
}

func (m *memTokens) AddUserToken(_ context.Context, uid, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens == nil {
		m.tokens = map[string]string{}
	}
	m.tokens[uid] = token
	return nil
}

func (m *memTokens) GetUserToken(_ context.Context, uid string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens[uid], nil
}

func (m *memTokens) ExtendUserToken(context.Context, string) error { return nil }

func (m *memTokens) AddRefreshToken(_ context.Context, uid, jti string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.refresh == nil {
		m.refresh = map[string]string{}
	}
	m.refresh[uid] = jti
	return nil
}

func (m *memTokens) GetRefreshToken(_ context.Context, uid string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	jti, ok := m.refresh[uid]
	if !ok {
		return "", redis.ErrTokenNotFound
	}
	return jti, nil
}

func (m *memTokens) DeleteUserToken(_ context.Context, uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, uid)
	delete(m.refresh, uid)
	return nil
}

type authFixture struct {
	auth     *AuthService
	profiles *ProfileService
	tokens   *memTokens
	issuer   *pkg.TokenIssuer
	observer *session.Observer
	changes  *[]session.Change
}

func newAuthFixture() authFixture {
	profiles := NewProfileService(tickingStore())
	tokens := &memTokens{}
	issuer := pkg.NewTokenIssuer("access-secret", "refresh-secret")
	observer := session.NewObserver()
	var changes []session.Change
	observer.Subscribe(func(c session.Change) { changes = append(changes, c) })
	return authFixture{
		auth:     NewAuthService(&memAccounts{}, tokens, issuer, profiles, observer),
		profiles: profiles,
		tokens:   tokens,
		issuer:   issuer,
		observer: observer,
		changes:  &changes,
	}
}

func TestRegisterThenLogin(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()

	res, err := f.auth.Register(ctx, RegisterInput{
		Email:       " Alice@Campus.edu ",
		Password:    "secret1",
		DisplayName: "Alice",
		Interests:   []string{"Chess", " chess ", "Chess", ""},
	})
	assert.Equal(t, nil, err)
	assert.Equal(t, "Alice", res.Profile.DisplayName)
	assert.Equal(t, "alice@campus.edu", res.Profile.Email)
	assert.Equal(t, []string{"Chess", "chess"}, res.Profile.Interests)
	assert.Equal(t, false, res.Profile.IsAdmin)

	uid := res.Profile.UID
	claims, err := f.issuer.ParseAccess(res.Token.AccessToken)
	assert.Equal(t, nil, err)
	assert.Equal(t, uid, claims.UID)
	assert.Equal(t, res.Token.AccessToken, f.tokens.tokens[uid])

	cur, ok := f.observer.Current(uid)
	assert.Equal(t, true, ok)
	assert.Equal(t, "Alice", cur.DisplayName)

	login, err := f.auth.Login(ctx, "alice@campus.edu", "secret1")
	assert.Equal(t, nil, err)
	assert.Equal(t, uid, login.Profile.UID)
	assert.Equal(t, "Alice", login.Profile.DisplayName)
	assert.Equal(t, 2, len(*f.changes))
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	cases := []struct {
		in  RegisterInput
		msg string
	}{
		{RegisterInput{Email: "not-an-email", Password: "secret1", DisplayName: "A"}, "Invalid email address"},
		{RegisterInput{Email: "a@b.edu", Password: "123", DisplayName: "A"}, "Password should be at least 6 characters"},
		{RegisterInput{Email: "a@b.edu", Password: "secret1", DisplayName: " "}, "Display name is required"},
	}
	for _, tc := range cases {
		_, err := f.auth.Register(ctx, tc.in)
		assert.Equal(t, true, errors.Is(err, ErrValidation))
		assert.Equal(t, tc.msg, err.Error())
	}
	assert.Equal(t, 0, len(*f.changes))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	in := RegisterInput{Email: "bob@campus.edu", Password: "secret1", DisplayName: "Bob"}
	_, err := f.auth.Register(ctx, in)
	assert.Equal(t, nil, err)

	_, err = f.auth.Register(ctx, in)
	assert.Equal(t, true, errors.Is(err, ErrConflict))
	assert.Equal(t, "Email already in use", err.Error())
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	_, _ = f.auth.Register(ctx, RegisterInput{Email: "bob@campus.edu", Password: "secret1", DisplayName: "Bob"})

	_, err := f.auth.Login(ctx, "bob@campus.edu", "wrong-pass")
	assert.Equal(t, true, errors.Is(err, ErrUnauthorized))
	assert.Equal(t, "Invalid email or password", err.Error())

	_, err = f.auth.Login(ctx, "nobody@campus.edu", "secret1")
	assert.Equal(t, true, errors.Is(err, ErrUnauthorized))
	assert.Equal(t, "Invalid email or password", err.Error())
}

func TestLoginExternalCreatesPlaceholderProfile(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()

	res, err := f.auth.LoginExternal(ctx, ExternalIdentity{Provider: "google", Subject: "12345"})
	assert.Equal(t, nil, err)
	assert.Equal(t, "google:12345", res.Profile.UID)
	assert.Equal(t, PlaceholderDisplayName, res.Profile.DisplayName)
	assert.Equal(t, 0, len(res.Profile.Interests))

	// 已有资料时不覆盖
	name := "Carol"
	_, err = f.profiles.Update(ctx, "google:12345", ProfileUpdate{DisplayName: &name})
	assert.Equal(t, nil, err)
	res, err = f.auth.LoginExternal(ctx, ExternalIdentity{Provider: "google", Subject: "12345", DisplayName: "Other"})
	assert.Equal(t, nil, err)
	assert.Equal(t, "Carol", res.Profile.DisplayName)

	_, err = f.auth.LoginExternal(ctx, ExternalIdentity{Provider: "google"})
	assert.Equal(t, true, errors.Is(err, ErrValidation))
}

func TestLogoutPublishesSignedOut(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	res, _ := f.auth.LoginExternal(ctx, ExternalIdentity{Provider: "gh", Subject: "7"})
	uid := res.Profile.UID

	assert.Equal(t, nil, f.auth.Logout(ctx, uid))

	last := (*f.changes)[len(*f.changes)-1]
	assert.Equal(t, uid, last.UID)
	assert.Equal(t, true, last.SignedOut())
	_, ok := f.observer.Current(uid)
	assert.Equal(t, false, ok)
	_, ok = f.tokens.tokens[uid]
	assert.Equal(t, false, ok)
}

func TestRefreshRegistersNewAccessToken(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	res, _ := f.auth.LoginExternal(ctx, ExternalIdentity{Provider: "gh", Subject: "8"})

	pair, err := f.auth.Refresh(ctx, res.Token.RefreshToken)
	assert.Equal(t, nil, err)
	assert.Equal(t, pair.AccessToken, f.tokens.tokens["gh:8"])

	_, err = f.auth.Refresh(ctx, res.Token.AccessToken)
	assert.Equal(t, true, errors.Is(err, ErrUnauthorized))
}

func TestRefreshRotatesRefreshToken(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	res, _ := f.auth.LoginExternal(ctx, ExternalIdentity{Provider: "gh", Subject: "9"})

	pair, err := f.auth.Refresh(ctx, res.Token.RefreshToken)
	assert.Equal(t, nil, err)

	// 换发后旧的 refresh token 不能再用
	_, err = f.auth.Refresh(ctx, res.Token.RefreshToken)
	assert.Equal(t, true, errors.Is(err, ErrUnauthorized))

	_, err = f.auth.Refresh(ctx, pair.RefreshToken)
	assert.Equal(t, nil, err)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	res, _ := f.auth.LoginExternal(ctx, ExternalIdentity{Provider: "gh", Subject: "10"})
	uid := res.Profile.UID

	assert.Equal(t, nil, f.auth.Logout(ctx, uid))

	_, err := f.auth.Refresh(ctx, res.Token.RefreshToken)
	assert.Equal(t, true, errors.Is(err, ErrUnauthorized))
	assert.Equal(t, "Session has ended, please log in again", err.Error())
	_, ok := f.tokens.tokens[uid]
	assert.Equal(t, false, ok)
	_, ok = f.observer.Current(uid)
	assert.Equal(t, false, ok)

	// 重新登录后旧会话的 refresh token 仍然无效
	again, _ := f.auth.LoginExternal(ctx, ExternalIdentity{Provider: "gh", Subject: "10"})
	_, err = f.auth.Refresh(ctx, res.Token.RefreshToken)
	assert.Equal(t, true, errors.Is(err, ErrUnauthorized))
	_, err = f.auth.Refresh(ctx, again.Token.RefreshToken)
	assert.Equal(t, nil, err)
}
