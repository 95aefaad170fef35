package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strconv"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"oneclick/internal/models"
	"oneclick/internal/repositories"
)

const (
	minPasswordLength = 6
	avatarBaseURL     = "https://api.dicebear.com/7.x/avataaars/svg?seed="
	jwtIssuer         = "oneclick"
)

// AuthSession is what a successful login hands back to the client.
type AuthSession struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

type sessionClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// UserService is the account and entitlement gateway.
type UserService interface {
	Register(ctx context.Context, email, password, name string) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*AuthSession, error)
	GetSession(ctx context.Context, token string) (*models.User, error)
	// FetchProfile looks up by id when it is non-zero, otherwise by email.
	// It returns nil, nil when no user matches.
	FetchProfile(ctx context.Context, email string, id uint) (*models.User, error)
	// DecrementToken debits one token unless the user is an admin or already
	// at zero, and returns the refreshed profile.
	DecrementToken(ctx context.Context, id uint, email string) (*models.User, error)
	SyncAdmins(ctx context.Context) error
	IsAdminEmail(email string) bool
}

type UserServiceConfig struct {
	JWTSecret   []byte
	TokenTTL    time.Duration
	AdminEmails []string
}

type userService struct {
	users  repositories.UserRepository
	secret []byte
	ttl    time.Duration
	admins mapset.Set[string]
	now    func() time.Time
}

func NewUserService(users repositories.UserRepository, cfg UserServiceConfig) UserService {
	admins := mapset.NewSet[string]()
	for _, e := range cfg.AdminEmails {
		if e = normalizeEmail(e); e != "" {
			admins.Add(e)
		}
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &userService{
		users:  users,
		secret: cfg.JWTSecret,
		ttl:    ttl,
		admins: admins,
		now:    time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *userService) IsAdminEmail(email string) bool {
	return s.admins.Contains(normalizeEmail(email))
}

func (s *userService) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return nil, invalid("a valid email is required")
	}
	if len(password) < minPasswordLength {
		return nil, invalid(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = email[:strings.IndexByte(email, '@')]
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	role := models.RoleUser
	if s.IsAdminEmail(email) {
		role = models.RoleAdmin
	}
	u := &models.User{
		Email:        email,
		Name:         name,
		AvatarURL:    avatarBaseURL + url.QueryEscape(email),
		PasswordHash: string(hash),
		Tokens:       models.DefaultSignupTokens,
		Role:         role,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	log.Info().Uint("user", u.ID).Str("role", role).Msg("account registered")
	return u, nil
}

func (s *userService) Authenticate(ctx context.Context, email, password string) (*AuthSession, error) {
	u, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if u == nil || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	if err := s.syncRole(ctx, u); err != nil {
		return nil, err
	}

	expires := s.now().Add(s.ttl)
	claims := sessionClaims{
		Email: u.Email,
		Role:  u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(u.ID), 10),
			Issuer:    jwtIssuer,
			IssuedAt:  jwt.NewNumericDate(s.now()),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}
	return &AuthSession{Token: token, ExpiresAt: expires, User: u}, nil
}

func (s *userService) GetSession(ctx context.Context, token string) (*models.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrUnauthorized
	}
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(jwtIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrUnauthorized)
	}
	u, err := s.users.FindByID(ctx, uint(id))
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("%w: account no longer exists", ErrUnauthorized)
	}
	return u, nil
}

func (s *userService) FetchProfile(ctx context.Context, email string, id uint) (*models.User, error) {
	if id != 0 {
		return s.users.FindByID(ctx, id)
	}
	email = normalizeEmail(email)
	if email == "" {
		return nil, nil
	}
	return s.users.FindByEmail(ctx, email)
}

func (s *userService) DecrementToken(ctx context.Context, id uint, email string) (*models.User, error) {
	u, err := s.FetchProfile(ctx, email, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	if u.IsAdmin() {
		return u, nil
	}
	if _, err := s.users.DecrementTokens(ctx, u.ID); err != nil {
		return nil, err
	}
	return s.users.FindByID(ctx, u.ID)
}

// SyncAdmins promotes allow-listed accounts and demotes admins that were
// removed from the list.
func (s *userService) SyncAdmins(ctx context.Context) error {
	const page = 200
	for offset := 0; ; offset += page {
		users, err := s.users.List(ctx, page, offset)
		if err != nil {
			return err
		}
		for i := range users {
			if err := s.syncRole(ctx, &users[i]); err != nil {
				return err
			}
		}
		if len(users) < page {
			return nil
		}
	}
}

func (s *userService) syncRole(ctx context.Context, u *models.User) error {
	want := models.RoleUser
	if s.IsAdminEmail(u.Email) {
		want = models.RoleAdmin
	}
	if u.Role == want {
		return nil
	}
	if err := s.users.SetRole(ctx, u.ID, want); err != nil {
		return fmt.Errorf("sync role for %d: %w", u.ID, err)
	}
	log.Info().Uint("user", u.ID).Str("role", want).Msg("role synced from admin list")
	u.Role = want
	return nil
}
