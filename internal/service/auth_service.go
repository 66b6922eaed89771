package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"campus_feed/internal/model"
	"campus_feed/internal/pkg"
	"campus_feed/internal/repository/mysql"
	"campus_feed/internal/repository/redis"
	"campus_feed/internal/session"
)

const minPasswordLen = 6

// AccountStore 登录凭据存储
type AccountStore interface {
	Create(ctx context.Context, acc *model.Account) error
	FindByEmail(ctx context.Context, email string) (*model.Account, error)
}

// TokenStore 每个用户当前有效的 access token 与 refresh token jti。
// DeleteUserToken 同时作废两者
type TokenStore interface {
	AddUserToken(ctx context.Context, uid, token string) error
	GetUserToken(ctx context.Context, uid string) (string, error)
	ExtendUserToken(ctx context.Context, uid string) error
	AddRefreshToken(ctx context.Context, uid, jti string) error
	GetRefreshToken(ctx context.Context, uid string) (string, error)
	DeleteUserToken(ctx context.Context, uid string) error
}

const sessionEnded = "Session has ended, please log in again"

type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
	Bio         string
	Interests   []string
}

// ExternalIdentity 第三方登录回调给出的身份
type ExternalIdentity struct {
	Provider    string
	Subject     string
	DisplayName string
	Email       string
}

type LoginResult struct {
	Token   *pkg.Pair
	Profile *model.UserProfile
}

type AuthService struct {
	accounts AccountStore
	tokens   TokenStore
	issuer   *pkg.TokenIssuer
	profiles *ProfileService
	observer *session.Observer
}

func NewAuthService(accounts AccountStore, tokens TokenStore, issuer *pkg.TokenIssuer, profiles *ProfileService, observer *session.Observer) *AuthService {
	return &AuthService{
		accounts: accounts,
		tokens:   tokens,
		issuer:   issuer,
		profiles: profiles,
		observer: observer,
	}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, newError(ErrValidation, "Invalid email address")
	}
	if len(in.Password) < minPasswordLen {
		return nil, newError(ErrValidation, "Password should be at least 6 characters")
	}
	if strings.TrimSpace(in.DisplayName) == "" {
		return nil, newError(ErrValidation, "Display name is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	acc := &model.Account{
		UID:      uuid.NewString(),
		Email:    email,
		Password: string(hash),
	}
	if err = s.accounts.Create(ctx, acc); err != nil {
		if errors.Is(err, mysql.ErrAccountExists) {
			return nil, newError(ErrConflict, "Email already in use")
		}
		return nil, remote(err)
	}

	who := session.Session{UID: acc.UID, DisplayName: strings.TrimSpace(in.DisplayName), Email: email}
	return s.signIn(ctx, who, ProfileSeed{DisplayName: in.DisplayName, Bio: in.Bio, Interests: cleanList(in.Interests)})
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	acc, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, mysql.ErrAccountNotFound) {
			return nil, newError(ErrUnauthorized, "Invalid email or password")
		}
		return nil, remote(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(acc.Password), []byte(password)) != nil {
		return nil, newError(ErrUnauthorized, "Invalid email or password")
	}
	return s.signIn(ctx, session.Session{UID: acc.UID, Email: acc.Email}, ProfileSeed{})
}

// LoginExternal 第三方身份登录，uid 由 provider 和 subject 派生
func (s *AuthService) LoginExternal(ctx context.Context, id ExternalIdentity) (*LoginResult, error) {
	provider := strings.TrimSpace(id.Provider)
	subject := strings.TrimSpace(id.Subject)
	if provider == "" || subject == "" {
		return nil, newError(ErrValidation, "Provider and subject are required")
	}
	uid := provider + ":" + subject
	return s.signIn(ctx, session.Session{UID: uid, DisplayName: id.DisplayName, Email: id.Email}, ProfileSeed{})
}

// signIn 任何方式登录成功后：确保资料存在、签发 token、广播登录态
func (s *AuthService) signIn(ctx context.Context, who session.Session, seed ProfileSeed) (*LoginResult, error) {
	profile, err := s.profiles.Ensure(ctx, who, seed)
	if err != nil {
		return nil, err
	}
	pair, err := s.issuer.GeneratePair(who.UID)
	if err != nil {
		return nil, err
	}
	// 将token写入redis，同一账号只保留最新一次登录
	if err = s.storePair(ctx, who.UID, pair); err != nil {
		return nil, err
	}
	who.DisplayName = profile.DisplayName
	if who.Email == "" {
		who.Email = profile.Email
	}
	s.observer.Publish(session.Change{UID: who.UID, Session: &who})
	glog.Infof("user %s signed in", who.UID)
	return &LoginResult{Token: pair, Profile: profile}, nil
}

func (s *AuthService) Logout(ctx context.Context, uid string) error {
	if err := s.tokens.DeleteUserToken(ctx, uid); err != nil {
		return remote(err)
	}
	s.observer.Publish(session.Change{UID: uid})
	return nil
}

func (s *AuthService) storePair(ctx context.Context, uid string, pair *pkg.Pair) error {
	if err := s.tokens.AddUserToken(ctx, uid, pair.AccessToken); err != nil {
		return remote(err)
	}
	if err := s.tokens.AddRefreshToken(ctx, uid, pair.RefreshID); err != nil {
		return remote(err)
	}
	return nil
}

// Refresh 用 refresh token 换一对新 token。只接受最近一次签发且未退出登录的 refresh token，
// 换发后旧的 refresh token 失效
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*pkg.Pair, error) {
	claims, err := s.issuer.ParseRefresh(refreshToken)
	if err != nil {
		return nil, &Error{Kind: ErrUnauthorized, Msg: err.Error(), Err: err}
	}
	current, err := s.tokens.GetRefreshToken(ctx, claims.UID)
	if err != nil {
		if errors.Is(err, redis.ErrTokenNotFound) {
			return nil, &Error{Kind: ErrUnauthorized, Msg: sessionEnded, Err: err}
		}
		return nil, remote(err)
	}
	if current != claims.ID {
		return nil, newError(ErrUnauthorized, sessionEnded)
	}
	pair, err := s.issuer.GeneratePair(claims.UID)
	if err != nil {
		return nil, err
	}
	if err = s.storePair(ctx, claims.UID, pair); err != nil {
		return nil, err
	}
	return pair, nil
}
