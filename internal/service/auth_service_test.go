package service

import (
	"context"
	"testing"
	"time"

	"token-sale-gateway/internal/core/domain"
	"token-sale-gateway/internal/core/ports"
	"token-sale-gateway/internal/core/ports/mocks"
	"token-sale-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type authTestDeps struct {
	svc      *AuthServiceImpl
	userRepo *mocks.MockUserRepository
	hashSvc  *mocks.MockHashService
	tokenSvc *mocks.MockTokenService
	ctrl     *gomock.Controller
}

func setupAuthService(t *testing.T) *authTestDeps {
	ctrl := gomock.NewController(t)
	d := &authTestDeps{
		userRepo: mocks.NewMockUserRepository(ctrl),
		hashSvc:  mocks.NewMockHashService(ctrl),
		tokenSvc: mocks.NewMockTokenService(ctrl),
		ctrl:     ctrl,
	}
	d.svc = NewAuthService(d.userRepo, d.hashSvc, d.tokenSvc)
	return d
}

func TestAuthService_Register_Success(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()

	d.userRepo.EXPECT().GetByUsername(ctx, "alice").Return(nil, nil)
	d.hashSvc.EXPECT().Hash("S3cret!pass").Return("$argon2id$hash", nil)
	d.userRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	user, err := d.svc.Register(ctx, ports.RegisterRequest{Username: "alice", Password: "S3cret!pass"})
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.Zero(t, user.Balance)
	assert.Len(t, user.ReferralCode, referralCodeLen)
	assert.Nil(t, user.ReferredBy)
}

func TestAuthService_Register_WithReferralCode(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	refCode := "REFCODE9"

	d.userRepo.EXPECT().GetByUsername(ctx, "bob").Return(nil, nil)
	d.userRepo.EXPECT().GetByReferralCode(ctx, refCode).Return(&domain.User{ID: uuid.New(), ReferralCode: refCode}, nil)
	d.hashSvc.EXPECT().Hash(gomock.Any()).Return("$argon2id$hash", nil)
	d.userRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	user, err := d.svc.Register(ctx, ports.RegisterRequest{Username: "bob", Password: "pw", ReferralCode: &refCode})
	require.NoError(t, err)
	require.NotNil(t, user.ReferredBy)
	assert.Equal(t, refCode, *user.ReferredBy)
	assert.NotEqual(t, refCode, user.ReferralCode, "new account gets its own code")
}

func TestAuthService_Register_UnknownReferralCode(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	refCode := "NOSUCH99"

	d.userRepo.EXPECT().GetByUsername(ctx, "bob").Return(nil, nil)
	d.userRepo.EXPECT().GetByReferralCode(ctx, refCode).Return(nil, nil)

	_, err := d.svc.Register(ctx, ports.RegisterRequest{Username: "bob", Password: "pw", ReferralCode: &refCode})
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "AUTH_005", appErr.Code)
}

func TestAuthService_Register_UsernameTaken(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()

	d.userRepo.EXPECT().GetByUsername(ctx, "alice").Return(&domain.User{ID: uuid.New(), Username: "alice"}, nil)

	_, err := d.svc.Register(ctx, ports.RegisterRequest{Username: "alice", Password: "pw"})
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "AUTH_002", appErr.Code)
}

func TestAuthService_Login_Success(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	user := &domain.User{ID: userID, Username: "alice", PasswordHash: "$argon2id$hash", Role: domain.RoleUser}

	d.userRepo.EXPECT().GetByUsername(ctx, "alice").Return(user, nil)
	d.hashSvc.EXPECT().Verify("pw", "$argon2id$hash").Return(true, nil)
	d.tokenSvc.EXPECT().Generate(userID, domain.RoleUser).Return("jwt-token", time.Now().Add(time.Hour), nil)

	token, _, err := d.svc.Login(ctx, "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "jwt-token", token)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	user := &domain.User{ID: uuid.New(), Username: "alice", PasswordHash: "$argon2id$hash"}

	d.userRepo.EXPECT().GetByUsername(ctx, "alice").Return(user, nil)
	d.hashSvc.EXPECT().Verify("nope", "$argon2id$hash").Return(false, nil)

	_, _, err := d.svc.Login(ctx, "alice", "nope")
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "AUTH_001", appErr.Code)
}

func TestAuthService_Login_UnknownUser(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()

	d.userRepo.EXPECT().GetByUsername(ctx, "ghost").Return(nil, nil)

	_, _, err := d.svc.Login(ctx, "ghost", "pw")
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "AUTH_001", appErr.Code, "unknown user and wrong password are indistinguishable")
}

func TestGenerateReferralCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := generateReferralCode()
		require.NoError(t, err)
		assert.Len(t, code, referralCodeLen)
		for _, c := range code {
			assert.Contains(t, referralCodeAlphabet, string(c))
		}
		seen[code] = true
	}
	assert.Greater(t, len(seen), 95, "codes should be effectively unique")
}
