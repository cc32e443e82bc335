package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"token-sale-gateway/internal/core/domain"
	"token-sale-gateway/internal/core/ports"
	"token-sale-gateway/pkg/apperror"

	"github.com/google/uuid"
)

// referralCodeAlphabet excludes look-alike characters (0/O, 1/I/L) so codes
// survive being read aloud or retyped.
const referralCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const referralCodeLen = 8

// AuthServiceImpl implements ports.AuthService.
type AuthServiceImpl struct {
	userRepo ports.UserRepository
	hashSvc  ports.HashService
	tokenSvc ports.TokenService
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	userRepo ports.UserRepository,
	hashSvc ports.HashService,
	tokenSvc ports.TokenService,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		userRepo: userRepo,
		hashSvc:  hashSvc,
		tokenSvc: tokenSvc,
	}
}

// Register creates a new user account with a fresh referral code. When the
// request carries a referral code it must resolve to an existing user, who
// becomes the referrer recorded on the account.
func (s *AuthServiceImpl) Register(ctx context.Context, req ports.RegisterRequest) (*domain.User, error) {
	existing, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check username: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrUsernameExists()
	}

	var referredBy *string
	if req.ReferralCode != nil && *req.ReferralCode != "" {
		referrer, err := s.userRepo.GetByReferralCode(ctx, *req.ReferralCode)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("resolve referral code: %w", err))
		}
		if referrer == nil {
			return nil, apperror.ErrInvalidReferralCode()
		}
		referredBy = req.ReferralCode
	}

	passwordHash, err := s.hashSvc.Hash(req.Password)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash password: %w", err))
	}

	code, err := generateReferralCode()
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate referral code: %w", err))
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New(),
		Username:     req.Username,
		PasswordHash: passwordHash,
		Role:         domain.RoleUser,
		Balance:      0,
		ReferralCode: code,
		ReferredBy:   referredBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create user: %w", err))
	}

	return user, nil
}

// Login validates credentials and returns a JWT token.
func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("find user: %w", err))
	}
	if user == nil {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	valid, err := s.hashSvc.Verify(password, user.PasswordHash)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !valid {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	token, expiry, err := s.tokenSvc.Generate(user.ID, user.Role)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	return token, expiry, nil
}

// generateReferralCode draws a code uniformly from the unambiguous alphabet.
func generateReferralCode() (string, error) {
	buf := make([]byte, referralCodeLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = referralCodeAlphabet[int(b)%len(referralCodeAlphabet)]
	}
	return string(buf), nil
}
