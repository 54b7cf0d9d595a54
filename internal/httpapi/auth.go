package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"tiendita/backend/internal/business"
	"tiendita/backend/internal/domain"
	"tiendita/backend/internal/store"
)

// AuthManager issues and validates HS256 access tokens over the user
// collection in the repository. Passwords are bcrypt hashes; legacy
// plain-text entries are upgraded in place on first load.
type AuthManager struct {
	secret     []byte
	tokenTTL   time.Duration
	repo       store.Repository
	businesses *business.Service
}

type posCustomClaims struct {
	jwtlib.RegisteredClaims
	Role       string `json:"role"`
	Name       string `json:"name,omitempty"`
	BusinessID string `json:"biz_id"`
}

func NewAuthManager(secret string, tokenTTL time.Duration, repo store.Repository, businesses *business.Service) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	return &AuthManager{
		secret:     []byte(secret),
		tokenTTL:   tokenTTL,
		repo:       repo,
		businesses: businesses,
	}
}

func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	user, err := a.findUser(ctx, username)
	if err != nil {
		return domain.LoginResponse{}, errors.New("invalid credentials")
	}
	if !verifyPassword(user.Password, req.Password) {
		return domain.LoginResponse{}, errors.New("invalid credentials")
	}
	if !user.Active {
		return domain.LoginResponse{}, errors.New("account is inactive")
	}

	expiresAt := time.Now().UTC().Add(a.tokenTTL)
	token, err := a.sign(user, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	return domain.LoginResponse{
		AccessToken: token,
		Role:        user.Role,
		BusinessID:  user.BusinessID,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

// Register onboards a new merchant: it creates the business and its
// owner account in one step.
func (a *AuthManager) Register(ctx context.Context, req domain.RegisterRequest) (domain.LoginResponse, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if len(username) < 4 || strings.ContainsAny(username, " \t\r\n") {
		return domain.LoginResponse{}, fmt.Errorf("%w: username must be at least 4 characters without spaces", store.ErrValidation)
	}
	if len(req.Password) < 6 {
		return domain.LoginResponse{}, fmt.Errorf("%w: password must be at least 6 characters", store.ErrValidation)
	}
	if _, err := a.findUser(ctx, username); err == nil {
		return domain.LoginResponse{}, fmt.Errorf("%w: username already exists", store.ErrValidation)
	}

	passwordHash, err := hashPassword(req.Password)
	if err != nil {
		return domain.LoginResponse{}, fmt.Errorf("failed to hash password")
	}

	biz, err := a.businesses.Create(ctx, req.Business)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	user := domain.UserAccount{
		ID:         uuid.NewString(),
		Username:   username,
		Name:       strings.TrimSpace(req.Name),
		Password:   passwordHash,
		Role:       domain.RoleOwner,
		BusinessID: biz.ID,
		Active:     true,
		CreatedAt:  time.Now().UTC(),
	}
	if err := a.appendUser(ctx, user); err != nil {
		// Roll the business back so the handle is free for a retry.
		if rbErr := a.businesses.Delete(ctx, biz.ID); rbErr != nil {
			log.Printf("[auth] failed to roll back business %s after user save error: %v", biz.ID, rbErr)
		}
		return domain.LoginResponse{}, err
	}

	return a.Login(ctx, domain.LoginRequest{Username: username, Password: req.Password})
}

// CreateEmployee adds an employee account to the owner's business.
func (a *AuthManager) CreateEmployee(ctx context.Context, businessID string, req domain.EmployeeCreateRequest) (domain.EmployeeUser, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if len(username) < 4 || strings.ContainsAny(username, " \t\r\n") {
		return domain.EmployeeUser{}, fmt.Errorf("%w: username must be at least 4 characters without spaces", store.ErrValidation)
	}
	if len(req.Password) < 6 {
		return domain.EmployeeUser{}, fmt.Errorf("%w: password must be at least 6 characters", store.ErrValidation)
	}
	if _, err := a.findUser(ctx, username); err == nil {
		return domain.EmployeeUser{}, fmt.Errorf("%w: username already exists", store.ErrValidation)
	}

	passwordHash, err := hashPassword(req.Password)
	if err != nil {
		return domain.EmployeeUser{}, fmt.Errorf("failed to hash password")
	}
	now := time.Now().UTC()
	user := domain.UserAccount{
		ID:         uuid.NewString(),
		Username:   username,
		Name:       strings.TrimSpace(req.Name),
		Password:   passwordHash,
		Role:       domain.RoleEmployee,
		BusinessID: businessID,
		Active:     true,
		CreatedAt:  now,
	}
	if err := a.appendUser(ctx, user); err != nil {
		return domain.EmployeeUser{}, err
	}

	return domain.EmployeeUser{
		Username:  username,
		Name:      user.Name,
		Role:      user.Role,
		Active:    true,
		CreatedAt: now,
	}, nil
}

// ListEmployees returns the business's employee accounts sorted by
// username.
func (a *AuthManager) ListEmployees(ctx context.Context, businessID string) ([]domain.EmployeeUser, error) {
	users, err := a.loadUsersUpgrading(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]domain.EmployeeUser, 0, len(users))
	for _, u := range users {
		if u.BusinessID != businessID || u.Role != domain.RoleEmployee {
			continue
		}
		result = append(result, domain.EmployeeUser{
			Username:  u.Username,
			Name:      u.Name,
			Role:      u.Role,
			Active:    u.Active,
			CreatedAt: u.CreatedAt,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Username < result[j].Username
	})
	return result, nil
}

func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &posCustomClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return domain.Actor{}, errors.New("invalid or expired token")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, errors.New("invalid token subject")
	}
	return domain.Actor{
		Username:   sub,
		Name:       claims.Name,
		Role:       claims.Role,
		BusinessID: claims.BusinessID,
	}, nil
}

func (a *AuthManager) sign(user domain.UserAccount, expiresAt time.Time) (string, error) {
	claims := posCustomClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   user.Username,
			IssuedAt:  jwtlib.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    "tiendita",
		},
		Role:       user.Role,
		Name:       user.Name,
		BusinessID: user.BusinessID,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func (a *AuthManager) findUser(ctx context.Context, username string) (domain.UserAccount, error) {
	users, err := a.loadUsersUpgrading(ctx)
	if err != nil {
		return domain.UserAccount{}, err
	}
	for _, u := range users {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return domain.UserAccount{}, store.ErrNotFound
}

func (a *AuthManager) appendUser(ctx context.Context, user domain.UserAccount) error {
	users, err := a.repo.LoadUsers(ctx)
	if err != nil {
		return err
	}
	users = append(users, user)
	return a.repo.SaveUsers(ctx, users)
}

// loadUsersUpgrading reads the user collection and rewrites any legacy
// plain-text password as a bcrypt hash before returning.
func (a *AuthManager) loadUsersUpgrading(ctx context.Context) ([]domain.UserAccount, error) {
	users, err := a.repo.LoadUsers(ctx)
	if err != nil {
		return nil, err
	}

	upgraded := false
	for i, u := range users {
		if u.Password == "" || isPasswordHash(u.Password) {
			continue
		}
		hashed, err := hashPassword(u.Password)
		if err != nil {
			continue
		}
		users[i].Password = hashed
		upgraded = true
	}
	if upgraded {
		if err := a.repo.SaveUsers(ctx, users); err != nil {
			return nil, err
		}
	}
	return users, nil
}

func verifyPassword(stored string, input string) bool {
	if stored == "" || strings.TrimSpace(input) == "" || !isPasswordHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
