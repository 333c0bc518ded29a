package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"luckysix/internal/audit"
	"luckysix/internal/auth"
	"luckysix/internal/cache"
	"luckysix/internal/crypto"
	apperrors "luckysix/internal/errors"
	"luckysix/internal/model"
	"luckysix/internal/repository"
)

// AttemptRejectedError is returned for a failed login that has not yet locked
// the account. Remaining is the number of attempts left before lockout.
type AttemptRejectedError struct {
	Remaining int
}

func (e *AttemptRejectedError) Error() string {
	return fmt.Sprintf("please check your login details and try again, %d login attempts remaining", e.Remaining)
}

// Is lets callers treat an attempt rejection as invalid credentials.
func (e *AttemptRejectedError) Is(target error) bool {
	return target == apperrors.ErrInvalidCredentials
}

// RegisterInput carries the already shape-validated registration fields.
type RegisterInput struct {
	Email       string
	Firstname   string
	Lastname    string
	Phone       string
	DateOfBirth string
	Postcode    string
	Password    string
	Role        string
}

// LoginResult is the outcome of a successful authentication.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         *model.User
}

// AuthService orchestrates login: credential check, second-factor check,
// lockout accounting and session establishment.
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*model.User, error)
	ProvisioningURI(ctx context.Context, email string) (string, error)
	Login(ctx context.Context, email, password, code, sourceAddr string) (*LoginResult, error)
	ResetAttempts(ctx context.Context, email string) error
	RefreshToken(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, refreshToken, sourceAddr string) error
	ChangePassword(ctx context.Context, userID uint, current, new string) error
}

type authService struct {
	userRepo   repository.UserRepository
	jwtService *auth.JWTService
	tokenStore auth.TokenStoreInterface
	attempts   auth.AttemptStore
	sink       audit.Sink
	cache      *cache.Client
	issuer     string
	threshold  int
}

// NewAuthService creates a new authentication service. threshold is the
// number of failed attempts after which logins are rejected outright.
func NewAuthService(
	userRepo repository.UserRepository,
	jwtService *auth.JWTService,
	tokenStore auth.TokenStoreInterface,
	attempts auth.AttemptStore,
	sink audit.Sink,
	cacheClient *cache.Client,
	issuer string,
	threshold int,
) AuthService {
	return &authService{
		userRepo:   userRepo,
		jwtService: jwtService,
		tokenStore: tokenStore,
		attempts:   attempts,
		sink:       sink,
		cache:      cacheClient,
		issuer:     issuer,
		threshold:  threshold,
	}
}

// Register creates a user with a hashed password, a fresh second-factor
// secret and a fresh encryption key, all written atomically with the row.
func (s *authService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	existing, err := s.userRepo.FindByEmail(ctx, input.Email)
	if err == nil && existing != nil {
		return nil, apperrors.ErrEmailExists
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check email existence: %w", err)
	}

	passwordHash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	totpSecret, err := auth.NewTOTPSecret(s.issuer, input.Email)
	if err != nil {
		return nil, err
	}

	encryptionKey, err := crypto.NewKey()
	if err != nil {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = model.RoleUser
	}

	user := &model.User{
		Email:         input.Email,
		PasswordHash:  passwordHash,
		Firstname:     input.Firstname,
		Lastname:      input.Lastname,
		Phone:         input.Phone,
		DateOfBirth:   input.DateOfBirth,
		Postcode:      input.Postcode,
		Role:          role,
		TOTPSecret:    totpSecret,
		EncryptionKey: encryptionKey,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.sink.Record(ctx, audit.Event{
		Kind:   audit.KindRegistration,
		UserID: user.ID,
		Email:  user.Email,
	})

	return user, nil
}

// ProvisioningURI returns the otpauth enrollment URI for the user's
// second-factor secret. Side-effect free.
func (s *authService) ProvisioningURI(ctx context.Context, email string) (string, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperrors.ErrUserNotFound
		}
		return "", fmt.Errorf("find user: %w", err)
	}
	return auth.ProvisioningURI(s.issuer, user.Email, user.TOTPSecret), nil
}

// Login evaluates password and one-time code as a single combined check.
// Either failing increments the attempt counter by exactly one; at the
// threshold the account is rejected without re-evaluating credentials until
// ResetAttempts. Success clears the counter, writes login telemetry and
// issues a token pair.
func (s *authService) Login(ctx context.Context, email, password, code, sourceAddr string) (*LoginResult, error) {
	count, err := s.attempts.Count(ctx, email)
	if err != nil {
		return nil, err
	}
	if count >= int64(s.threshold) {
		s.sink.Record(ctx, audit.Event{
			Kind:       audit.KindLockout,
			Email:      email,
			SourceAddr: sourceAddr,
		})
		return nil, apperrors.ErrLockedOut
	}

	user, findErr := s.userRepo.FindByEmail(ctx, email)

	// Single combined check: a missing user, wrong password, or wrong code
	// all count as one failed attempt.
	ok := findErr == nil &&
		auth.VerifyPassword(user.PasswordHash, password) &&
		auth.VerifyTOTP(user.TOTPSecret, code)

	if !ok {
		if findErr != nil && !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("find user: %w", findErr)
		}

		n, err := s.attempts.Increment(ctx, email)
		if err != nil {
			return nil, err
		}

		s.sink.Record(ctx, audit.Event{
			Kind:       audit.KindInvalidLogin,
			Email:      email,
			SourceAddr: sourceAddr,
		})

		if n >= int64(s.threshold) {
			s.sink.Record(ctx, audit.Event{
				Kind:       audit.KindLockout,
				Email:      email,
				SourceAddr: sourceAddr,
			})
			return nil, apperrors.ErrLockedOut
		}
		return nil, &AttemptRejectedError{Remaining: s.threshold - int(n)}
	}

	if err := s.attempts.Reset(ctx, email); err != nil {
		return nil, err
	}

	now := time.Now()
	user.LastLogin = user.CurrentLogin
	user.CurrentLogin = &now
	user.LastIP = user.CurrentIP
	user.CurrentIP = sourceAddr
	user.TotalLogins++

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update login telemetry: %w", err)
	}
	_ = s.cache.Delete(ctx, profileCacheKey(user.ID))

	s.sink.Record(ctx, audit.Event{
		Kind:       audit.KindLogin,
		UserID:     user.ID,
		Email:      user.Email,
		SourceAddr: sourceAddr,
	})

	accessToken, err := s.jwtService.GenerateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	tokenID, refreshToken, err := s.jwtService.GenerateRefreshToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	if err := s.tokenStore.StoreRefreshToken(ctx, tokenID, user.ID, user.Email, auth.RefreshTokenExpiry); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	}, nil
}

// ResetAttempts clears the lockout counter, returning the account to the
// anonymous state.
func (s *authService) ResetAttempts(ctx context.Context, email string) error {
	return s.attempts.Reset(ctx, email)
}

// RefreshToken validates a refresh token and returns a new access token.
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.jwtService.ValidateToken(refreshToken)
	if err != nil {
		return "", apperrors.ErrInvalidCredentials
	}

	tokenID, err := s.jwtService.ExtractTokenID(refreshToken)
	if err != nil {
		return "", apperrors.ErrInvalidCredentials
	}

	storedUserID, storedEmail, err := s.tokenStore.GetRefreshToken(ctx, tokenID)
	if err != nil {
		return "", apperrors.ErrInvalidCredentials
	}

	if storedUserID != claims.UserID || storedEmail != claims.Email {
		return "", apperrors.ErrInvalidCredentials
	}

	accessToken, err := s.jwtService.GenerateAccessToken(claims.UserID, claims.Email, claims.Role)
	if err != nil {
		return "", fmt.Errorf("generate access token: %w", err)
	}

	return accessToken, nil
}

// Logout invalidates the refresh token and audits the event. The attempt
// counter is untouched.
func (s *authService) Logout(ctx context.Context, refreshToken, sourceAddr string) error {
	claims, err := s.jwtService.ValidateToken(refreshToken)
	if err != nil {
		return apperrors.ErrInvalidCredentials
	}
	if claims.ID == "" {
		return apperrors.ErrInvalidCredentials
	}

	if err := s.tokenStore.DeleteRefreshToken(ctx, claims.ID); err != nil {
		return err
	}

	s.sink.Record(ctx, audit.Event{
		Kind:       audit.KindLogout,
		UserID:     claims.UserID,
		Email:      claims.Email,
		SourceAddr: sourceAddr,
	})
	return nil
}

// ChangePassword replaces the user's password after verifying the current
// one. Both checks go through the hash's verify primitive.
func (s *authService) ChangePassword(ctx context.Context, userID uint, current, newPassword string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}

	if !auth.VerifyPassword(user.PasswordHash, current) {
		return apperrors.ErrWrongCurrentPassword
	}
	if auth.VerifyPassword(user.PasswordHash, newPassword) {
		return apperrors.ErrSamePassword
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash

	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.sink.Record(ctx, audit.Event{
		Kind:   audit.KindPasswordChange,
		UserID: user.ID,
		Email:  user.Email,
	})
	return nil
}
