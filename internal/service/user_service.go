package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"luckysix/internal/cache"
	apperrors "luckysix/internal/errors"
	"luckysix/internal/model"
	"luckysix/internal/repository"
)

const profileCacheTTL = 5 * time.Minute

// Profile is the user record with secrets stripped. Only this shape is
// cached or returned to callers; password hashes, second-factor secrets and
// encryption keys never leave the service layer.
type Profile struct {
	ID           uint       `json:"id"`
	Email        string     `json:"email"`
	Firstname    string     `json:"firstname"`
	Lastname     string     `json:"lastname"`
	Phone        string     `json:"phone"`
	DateOfBirth  string     `json:"date_of_birth"`
	Postcode     string     `json:"postcode"`
	Role         string     `json:"role"`
	CurrentLogin *time.Time `json:"current_login,omitempty"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CurrentIP    string     `json:"current_ip,omitempty"`
	LastIP       string     `json:"last_ip,omitempty"`
	TotalLogins  int        `json:"total_logins"`
}

// UserService exposes profile reads for the account and admin pages.
type UserService interface {
	GetProfile(ctx context.Context, id uint) (*Profile, error)
	ListUsers(ctx context.Context) ([]Profile, error)
}

type userService struct {
	repo  repository.UserRepository
	cache *cache.Client
}

// NewUserService builds a UserService with repository and cache.
func NewUserService(repo repository.UserRepository, cache *cache.Client) UserService {
	return &userService{repo: repo, cache: cache}
}

func profileCacheKey(id uint) string {
	return fmt.Sprintf("user:%d", id)
}

func toProfile(u *model.User) Profile {
	return Profile{
		ID:           u.ID,
		Email:        u.Email,
		Firstname:    u.Firstname,
		Lastname:     u.Lastname,
		Phone:        u.Phone,
		DateOfBirth:  u.DateOfBirth,
		Postcode:     u.Postcode,
		Role:         u.Role,
		CurrentLogin: u.CurrentLogin,
		LastLogin:    u.LastLogin,
		CurrentIP:    u.CurrentIP,
		LastIP:       u.LastIP,
		TotalLogins:  u.TotalLogins,
	}
}

func (s *userService) GetProfile(ctx context.Context, id uint) (*Profile, error) {
	if data, _ := s.cache.Get(ctx, profileCacheKey(id)); data != nil {
		var cached Profile
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}

	profile := toProfile(user)
	if payload, err := json.Marshal(profile); err == nil {
		_ = s.cache.Set(ctx, profileCacheKey(id), payload, profileCacheTTL)
	}
	return &profile, nil
}

// ListUsers returns the profiles of all registered participants.
func (s *userService) ListUsers(ctx context.Context) ([]Profile, error) {
	users, err := s.repo.ListByRole(ctx, model.RoleUser)
	if err != nil {
		return nil, err
	}
	profiles := make([]Profile, 0, len(users))
	for i := range users {
		profiles = append(profiles, toProfile(&users[i]))
	}
	return profiles, nil
}
