// Package service implements the authenticator: registration, login, logout and
// token verification over a user directory and a session ledger.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	identitydomain "authledger/internal/identity/domain"
	"authledger/internal/security"
	sessiondomain "authledger/internal/session/domain"
	"authledger/internal/session/ledger"
	"authledger/internal/telemetry"
	userdomain "authledger/internal/user/domain"
	userrepo "authledger/internal/user/repository"
)

const eventSource = "authenticator"

// dummyPassword is hashed at construction and compared against when a login names an
// unknown user, so both failure paths pay for one bcrypt comparison.
const dummyPassword = "authledger-enumeration-guard"

// LoginResult is returned by a successful Login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	UserID    string
	Username  string
}

// UserRepo is the minimal user directory needed by the auth service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	FindByUsername(ctx context.Context, username string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) error
}

// AuthService implements register, login, logout, verify and session listing.
type AuthService struct {
	users    UserRepo
	sessions ledger.Ledger
	hasher   *security.Hasher
	tokens   *security.Codec
	emitter  telemetry.EventEmitter
	logger   *zap.Logger
	nowF     func() time.Time

	// dummyHash is a hash of dummyPassword at the hasher's cost.
	dummyHash string
}

// NewAuthService returns an AuthService with the given dependencies. emitter may be nil;
// a nil logger discards output. It fails if the hasher cannot hash at its configured cost.
func NewAuthService(
	users UserRepo,
	sessions ledger.Ledger,
	hasher *security.Hasher,
	tokens *security.Codec,
	emitter telemetry.EventEmitter,
	logger *zap.Logger,
) (*AuthService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dummyHash, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("hash enumeration guard: %w", err)
	}
	return &AuthService{
		users:     users,
		sessions:  sessions,
		hasher:    hasher,
		tokens:    tokens,
		emitter:   emitter,
		logger:    logger,
		nowF:      time.Now,
		dummyHash: dummyHash,
	}, nil
}

// WithClock sets the time source used for timestamps and logout expiry. Call before use.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.nowF = now
	return s
}

// Register creates a user with the given username and password. The username is trimmed;
// the password is used as given.
func (s *AuthService) Register(ctx context.Context, username, password string) (*userdomain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, identitydomain.ErrMissingFields
	}
	hashed, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Error("hash password", zap.Error(err))
		return nil, identitydomain.ErrInternal
	}
	user := &userdomain.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: hashed,
		CreatedAt:    s.nowF().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, userrepo.ErrDuplicateUsername) {
			return nil, identitydomain.ErrDuplicateUsername
		}
		s.logger.Error("create user", zap.String("username", username), zap.Error(err))
		return nil, identitydomain.ErrInternal
	}
	s.emit(ctx, telemetry.EventRegister, user.ID, user.Username, "")
	return user, nil
}

// Login checks the credentials, issues a token and registers its session. An unknown
// username and a wrong password both return ErrInvalidCredentials. No session is
// registered unless every step succeeds.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, identitydomain.ErrMissingFields
	}
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		s.logger.Error("find user", zap.String("username", username), zap.Error(err))
		return nil, identitydomain.ErrInternal
	}
	if user == nil {
		s.hasher.Verify(password, s.dummyHash)
		s.emit(ctx, telemetry.EventLoginFailed, "", username, "")
		return nil, identitydomain.ErrInvalidCredentials
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		s.emit(ctx, telemetry.EventLoginFailed, user.ID, username, "")
		return nil, identitydomain.ErrInvalidCredentials
	}

	token, claims, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		s.logger.Error("issue token", zap.String("user_id", user.ID), zap.Error(err))
		return nil, identitydomain.ErrInternal
	}
	sess := &sessiondomain.Session{
		ID:        security.HashToken(token),
		Token:     token,
		UserID:    user.ID,
		Username:  user.Username,
		CreatedAt: claims.IssuedAt,
		ExpiresAt: claims.ExpiresAt,
	}
	if err := s.sessions.Register(ctx, sess); err != nil {
		s.logger.Error("register session", zap.String("user_id", user.ID), zap.Error(err))
		return nil, identitydomain.ErrInternal
	}
	s.emit(ctx, telemetry.EventLogin, user.ID, user.Username, sess.ID)
	return &LoginResult{
		Token:     token,
		ExpiresAt: claims.ExpiresAt,
		UserID:    user.ID,
		Username:  user.Username,
	}, nil
}

// Logout revokes token. It succeeds for unknown, expired, malformed and already revoked
// tokens; only a ledger failure is reported.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	expiresAt := s.nowF().UTC()
	var userID, username string
	if claims, err := s.tokens.Decode(token); err == nil {
		expiresAt = claims.ExpiresAt
		userID, username = claims.UserID, claims.Username
	}
	if err := s.sessions.Revoke(ctx, token, expiresAt); err != nil {
		s.logger.Error("revoke token", zap.String("user_id", userID), zap.Error(err))
		return identitydomain.ErrInternal
	}
	s.emit(ctx, telemetry.EventLogout, userID, username, security.HashToken(token))
	return nil
}

// Verify returns the identity carried by token if it decodes, has not expired and has not
// been revoked. Every failure, including a ledger error, is ErrUnauthenticated.
func (s *AuthService) Verify(ctx context.Context, token string) (*identitydomain.Identity, error) {
	claims, err := s.tokens.Decode(token)
	if err != nil {
		return nil, identitydomain.ErrUnauthenticated
	}
	revoked, err := s.sessions.IsRevoked(ctx, token)
	if err != nil {
		s.logger.Error("check revocation", zap.String("user_id", claims.UserID), zap.Error(err))
		return nil, identitydomain.ErrUnauthenticated
	}
	if revoked {
		return nil, identitydomain.ErrUnauthenticated
	}
	return &identitydomain.Identity{
		UserID:    claims.UserID,
		Username:  claims.Username,
		TokenID:   claims.ID,
		IssuedAt:  claims.IssuedAt,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

// Sessions lists the caller's currently valid sessions, oldest first.
func (s *AuthService) Sessions(ctx context.Context, id *identitydomain.Identity) ([]*sessiondomain.Session, error) {
	if id == nil {
		return nil, identitydomain.ErrUnauthenticated
	}
	list, err := s.sessions.ListByUser(ctx, id.UserID)
	if err != nil {
		s.logger.Error("list sessions", zap.String("user_id", id.UserID), zap.Error(err))
		return nil, identitydomain.ErrInternal
	}
	return list, nil
}

// Me returns the directory record of the caller. A token whose user no longer exists is
// treated as unauthenticated.
func (s *AuthService) Me(ctx context.Context, id *identitydomain.Identity) (*userdomain.User, error) {
	if id == nil {
		return nil, identitydomain.ErrUnauthenticated
	}
	user, err := s.users.GetByID(ctx, id.UserID)
	if err != nil {
		s.logger.Error("get user", zap.String("user_id", id.UserID), zap.Error(err))
		return nil, identitydomain.ErrInternal
	}
	if user == nil {
		return nil, identitydomain.ErrUnauthenticated
	}
	return user, nil
}

func (s *AuthService) emit(ctx context.Context, eventType, userID, username, sessionID string) {
	if s.emitter == nil {
		return
	}
	event := telemetry.NewEvent(eventType, eventSource)
	event.UserID = userID
	event.Username = username
	event.SessionID = sessionID
	telemetry.EmitAsync(s.emitter, ctx, event)
}
