package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/hackbridge/hackbridge/internal/models"
	"github.com/hackbridge/hackbridge/internal/repository"
)

const (
	// MinPasswordLength is the shortest accepted password.
	MinPasswordLength = 6
	// StartingBalance is credited to every newly registered account.
	StartingBalance = 1000
	// DefaultAvatarURL is assigned on registration.
	DefaultAvatarURL = "/placeholder.svg"
)

// AuthOptions configures AuthService.
type AuthOptions struct {
	// Secret signs session tokens with HS256.
	Secret []byte
	// TTL is the session lifetime.
	TTL time.Duration
	// BcryptCost is used for new password hashes; zero means bcrypt.DefaultCost.
	BcryptCost int
	// Now overrides the clock in tests.
	Now func() time.Time
}

// AuthService handles registration, login and session resolution.
type AuthService struct {
	users    UserStore
	sessions SessionStore
	opts     AuthOptions
	log      *zap.Logger
}

// NewAuthService constructs a new AuthService using the provided stores.
func NewAuthService(users UserStore, sessions SessionStore, opts AuthOptions, log *zap.Logger) *AuthService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{users: users, sessions: sessions, opts: opts, log: log}
}

// RegisterInput holds the fields of a sign-up request.
type RegisterInput struct {
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
}

// Register creates a hacker or company account and logs it in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, string, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	switch {
	case in.Username == "":
		return nil, "", errors.Wrap(ErrInvalidInput, "username is required")
	case in.Email == "" || !strings.Contains(in.Email, "@"):
		return nil, "", errors.Wrap(ErrInvalidInput, "valid email is required")
	case in.Role != models.RoleHacker && in.Role != models.RoleCompany:
		return nil, "", errors.Wrapf(ErrInvalidInput, "cannot register with role %q", in.Role)
	}
	if err := checkPassword(in.Password); err != nil {
		return nil, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.opts.BcryptCost)
	if err != nil {
		return nil, "", errors.Wrap(err, "hash password")
	}

	u := &models.User{
		ID:               uuid.NewString(),
		Username:         in.Username,
		Email:            in.Email,
		Role:             in.Role,
		AvatarURL:        DefaultAvatarURL,
		Balance:          StartingBalance,
		Skills:           []models.Skill{},
		PurchasedCourses: []string{},
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, "", err
	}
	if err := s.users.SetPasswordHash(ctx, u.ID, hash); err != nil {
		_ = s.users.Delete(ctx, u.ID)
		return nil, "", err
	}
	s.log.Info("user registered", zap.String("user_id", u.ID), zap.String("role", string(u.Role)))

	token, err := s.startSession(ctx, u.ID)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

func checkPassword(p string) error {
	if len([]rune(p)) < MinPasswordLength {
		return errors.Wrapf(ErrInvalidInput, "password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// Login verifies the password and opens a session. A failed login never
// creates a session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, "", ErrUserNotFound
	}
	if err != nil {
		return nil, "", err
	}

	hash, err := s.users.PasswordHash(ctx, u.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}
	if u.Banned {
		return nil, "", ErrUserBanned
	}

	token, err := s.startSession(ctx, u.ID)
	if err != nil {
		return nil, "", err
	}
	s.log.Info("user logged in", zap.String("user_id", u.ID))
	return u, token, nil
}

func (s *AuthService) startSession(ctx context.Context, userID string) (string, error) {
	now := s.opts.Now()
	session := &models.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.opts.TTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return "", errors.Wrap(err, "create session")
	}
	claims := jwt.RegisteredClaims{
		ID:        session.ID,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.opts.Secret)
	if err != nil {
		_ = s.sessions.Delete(ctx, session.ID)
		return "", errors.Wrap(err, "sign token")
	}
	return token, nil
}

func (s *AuthService) parseToken(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.opts.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.opts.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, errors.Wrap(ErrNotAuthenticated, err.Error())
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, ErrNotAuthenticated
	}
	return claims, nil
}

// Authenticate resolves token to its user and session.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, *models.Session, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return nil, nil, err
	}
	session, err := s.sessions.Get(ctx, claims.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, ErrNotAuthenticated
	}
	if err != nil {
		return nil, nil, err
	}
	if session.UserID != claims.Subject || session.IsExpired(s.opts.Now()) {
		return nil, nil, ErrNotAuthenticated
	}

	u, err := s.users.GetByID(ctx, session.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, ErrNotAuthenticated
	}
	if err != nil {
		return nil, nil, err
	}
	if u.Banned {
		return nil, nil, ErrUserBanned
	}
	return u, session, nil
}

// CurrentUser returns the user logged in with token.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	u, _, err := s.Authenticate(ctx, token)
	return u, err
}

// Logout ends the session of token.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.parseToken(token)
	if err != nil {
		return err
	}
	err = s.sessions.Delete(ctx, claims.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	s.log.Info("user logged out", zap.String("user_id", claims.Subject))
	return nil
}

// ChangePassword replaces the password after verifying the old one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	hash, err := s.users.PasswordHash(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(oldPassword)); err != nil {
		return ErrInvalidCredentials
	}
	if err := checkPassword(newPassword); err != nil {
		return err
	}
	next, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.opts.BcryptCost)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}
	if err := s.users.SetPasswordHash(ctx, userID, next); err != nil {
		return err
	}
	s.log.Info("password changed", zap.String("user_id", userID))
	return nil
}

// ProfileInput holds editable profile fields; nil fields are left unchanged.
type ProfileInput struct {
	Username  *string `json:"username"`
	AvatarURL *string `json:"avatarUrl"`
}

// UpdateProfile edits the display fields of a user.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*models.User, error) {
	if in.Username != nil && strings.TrimSpace(*in.Username) == "" {
		return nil, errors.Wrap(ErrInvalidInput, "username must not be empty")
	}
	u, err := s.users.Modify(ctx, userID, func(u *models.User) error {
		if in.Username != nil {
			u.Username = strings.TrimSpace(*in.Username)
		}
		if in.AvatarURL != nil {
			u.AvatarURL = *in.AvatarURL
		}
		return nil
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}
