package services

import (
	"context"
	"errors"
	"strings"

	"github.com/shashiranjanraj/kisanmart/app/models"
	"github.com/shashiranjanraj/kisanmart/app/repositories"
	"github.com/shashiranjanraj/kisanmart/config"
	"github.com/shashiranjanraj/kisanmart/pkg/auth"
	"github.com/shashiranjanraj/kisanmart/pkg/logger"
	"github.com/shashiranjanraj/kisanmart/pkg/validate"
)

type RegisterInput struct {
	Name     string `json:"name"     validate:"required,max=100"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone"    validate:"nullable,max=20"`
	Address  string `json:"address"  validate:"nullable,max=500"`
}

type LoginInput struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ProfileInput updates the caller's profile. Empty fields are unchanged.
type ProfileInput struct {
	Name     string `json:"name"     validate:"nullable,max=100"`
	Email    string `json:"email"    validate:"nullable,email"`
	Password string `json:"password" validate:"nullable,min=6"`
	Phone    string `json:"phone"    validate:"nullable,max=20"`
	Address  string `json:"address"  validate:"nullable,max=500"`
}

// AuthResult is returned by every login flow.
type AuthResult struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Token string `json:"token"`
}

type AuthService struct {
	store repositories.Store
}

func NewAuthService(store repositories.Store) *AuthService {
	return &AuthService{store: store}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if errs := validate.Struct(in); validate.HasErrors(errs) {
		return nil, InvalidFields(errs)
	}
	if isAdminEmail(in.Email) {
		return nil, Invalid("User already exists")
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		Name:     strings.TrimSpace(in.Name),
		Email:    in.Email,
		Password: hash,
		Phone:    in.Phone,
		Address:  in.Address,
		Role:     models.RoleUser,
	}
	if err := s.store.Users().Create(ctx, u); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, Invalid("User already exists")
		}
		return nil, err
	}
	logger.WithCtx(ctx).Info("user registered", "user_id", u.ID)
	return issue(u)
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	u, err := s.store.Users().FindByEmail(ctx, in.Email)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, Unauthenticated("Invalid email or password")
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(u.Password, in.Password) {
		return nil, Unauthenticated("Invalid email or password")
	}
	return issue(u)
}

// AdminLogin accepts only the configured ADMIN_EMAIL / ADMIN_PASSWORD
// pair. The admin account is created on first login. A customer account
// already holding ADMIN_EMAIL is taken over: its password is reset to
// ADMIN_PASSWORD before it is promoted.
func (s *AuthService) AdminLogin(ctx context.Context, in LoginInput) (*AuthResult, error) {
	email, password := config.AdminEmail(), config.AdminPassword()
	if !strings.EqualFold(strings.TrimSpace(in.Email), email) || in.Password != password {
		return nil, Unauthenticated("Invalid admin credentials")
	}

	admin, err := s.store.Users().FindByEmail(ctx, email)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		hash, herr := auth.HashPassword(password)
		if herr != nil {
			return nil, herr
		}
		admin = &models.User{
			Name:            "Admin",
			Email:           email,
			Password:        hash,
			Role:            models.RoleAdmin,
			IsEmailVerified: true,
		}
		if err := s.store.Users().Create(ctx, admin); err != nil {
			return nil, err
		}
		logger.WithCtx(ctx).Info("admin account created", "user_id", admin.ID)
	case err != nil:
		return nil, err
	case !admin.IsAdmin() || !auth.CheckPassword(admin.Password, password):
		hash, herr := auth.HashPassword(password)
		if herr != nil {
			return nil, herr
		}
		logger.WithCtx(ctx).Warn("admin account reclaimed", "user_id", admin.ID, "previous_role", admin.Role)
		admin.Role = models.RoleAdmin
		admin.Password = hash
		if err := s.store.Users().Update(ctx, admin); err != nil {
			return nil, err
		}
	}
	return issue(admin)
}

func isAdminEmail(email string) bool {
	return strings.EqualFold(strings.TrimSpace(email), config.AdminEmail())
}

func (s *AuthService) Profile(ctx context.Context, actor auth.Identity) (*models.User, error) {
	u, err := s.store.Users().FindByID(ctx, actor.UserID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, NotFound("User not found")
	}
	return u, err
}

func (s *AuthService) UpdateProfile(ctx context.Context, actor auth.Identity, in ProfileInput) (*models.User, error) {
	if errs := validate.Struct(in); validate.HasErrors(errs) {
		return nil, InvalidFields(errs)
	}
	u, err := s.Profile(ctx, actor)
	if err != nil {
		return nil, err
	}
	if in.Name != "" {
		u.Name = strings.TrimSpace(in.Name)
	}
	if in.Email != "" && !strings.EqualFold(in.Email, u.Email) {
		if isAdminEmail(in.Email) {
			return nil, Invalid("Email already in use")
		}
		u.Email = in.Email
	}
	if in.Phone != "" {
		u.Phone = in.Phone
	}
	if in.Address != "" {
		u.Address = in.Address
	}
	if in.Password != "" {
		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		u.Password = hash
	}
	if err := s.store.Users().Update(ctx, u); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, Invalid("Email already in use")
		}
		return nil, err
	}
	return u, nil
}

func issue(u *models.User) (*AuthResult, error) {
	token, err := auth.GenerateToken(u.ID, u.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResult{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, Token: token}, nil
}
