package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/rolodex/rolodex/api/internal/config"
	"github.com/rolodex/rolodex/api/internal/domain"
	apperrors "github.com/rolodex/rolodex/api/internal/pkg/errors"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			Secret:       "test-secret-key-for-testing",
			AccessExpiry: 60,
			Issuer:       "rolodex-test",
		},
	}
}

func TestAuthService_Register(t *testing.T) {
	t.Run("successfully registers new user", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		userRepo.On("ExistsByEmail", mock.Anything, "test@example.com").Return(false, nil)
		userRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)

		svc := NewAuthService(testConfig(), userRepo)

		result, err := svc.Register(context.Background(), &domain.RegisterInput{
			Email:    " Test@Example.com ",
			Password: "securepassword123",
			Name:     "Test User",
		})

		require.NoError(t, err)
		assert.NotEmpty(t, result.AccessToken)
		assert.Equal(t, "test@example.com", result.User.Email)
		assert.Equal(t, "Test User", result.User.Name)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(result.User.PasswordHash), []byte("securepassword123")))
		assert.WithinDuration(t, time.Now().Add(time.Hour), result.ExpiresAt, time.Minute)

		userRepo.AssertExpectations(t)
	})

	t.Run("fails if email already exists", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		userRepo.On("ExistsByEmail", mock.Anything, "existing@example.com").Return(true, nil)

		svc := NewAuthService(testConfig(), userRepo)

		result, err := svc.Register(context.Background(), &domain.RegisterInput{
			Email:    "existing@example.com",
			Password: "password123",
		})

		require.Error(t, err)
		assert.Nil(t, result)
		assert.True(t, apperrors.IsConflict(err))
		userRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("rejects short password before store access", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		svc := NewAuthService(testConfig(), userRepo)

		_, err := svc.Register(context.Background(), &domain.RegisterInput{
			Email:    "short@example.com",
			Password: "short",
		})

		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
		userRepo.AssertNotCalled(t, "ExistsByEmail", mock.Anything, mock.Anything)
	})
}

func TestAuthService_Login(t *testing.T) {
	passwordHash, err := bcrypt.GenerateFromPassword([]byte("correctpassword"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &domain.User{
		ID:           uuid.New(),
		Email:        "user@example.com",
		PasswordHash: string(passwordHash),
	}

	t.Run("successfully logs in with valid credentials", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		userRepo.On("GetByEmail", mock.Anything, "user@example.com").Return(user, nil)

		svc := NewAuthService(testConfig(), userRepo)

		result, err := svc.Login(context.Background(), &domain.LoginInput{
			Email:    "user@example.com",
			Password: "correctpassword",
		})

		require.NoError(t, err)
		assert.NotEmpty(t, result.AccessToken)
		assert.Equal(t, user.ID, result.User.ID)
	})

	t.Run("fails with wrong password", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		userRepo.On("GetByEmail", mock.Anything, "user@example.com").Return(user, nil)

		svc := NewAuthService(testConfig(), userRepo)

		result, err := svc.Login(context.Background(), &domain.LoginInput{
			Email:    "user@example.com",
			Password: "wrongpassword",
		})

		require.Error(t, err)
		assert.Nil(t, result)
		assert.True(t, apperrors.IsUnauthorized(err))
		assert.Contains(t, err.Error(), "invalid credentials")
	})

	t.Run("fails for non-existent user", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		userRepo.On("GetByEmail", mock.Anything, "notfound@example.com").Return(nil, apperrors.NotFound("user"))

		svc := NewAuthService(testConfig(), userRepo)

		result, err := svc.Login(context.Background(), &domain.LoginInput{
			Email:    "notfound@example.com",
			Password: "password123",
		})

		require.Error(t, err)
		assert.Nil(t, result)
		assert.True(t, apperrors.IsUnauthorized(err))
	})
}

func TestAuthService_ValidateJWT(t *testing.T) {
	t.Run("validates valid JWT token", func(t *testing.T) {
		svc := NewAuthService(testConfig(), new(MockUserRepository))

		user := &domain.User{ID: uuid.New(), Email: "user@example.com"}
		token, err := svc.generateAccessToken(user, time.Now().Add(time.Hour))
		require.NoError(t, err)

		claims, err := svc.ValidateJWT(context.Background(), token)

		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), claims.UserID)
		assert.Equal(t, "user@example.com", claims.Email)
		assert.Equal(t, "rolodex-test", claims.Issuer)
	})

	t.Run("fails with invalid token", func(t *testing.T) {
		svc := NewAuthService(testConfig(), new(MockUserRepository))

		claims, err := svc.ValidateJWT(context.Background(), "invalid.jwt.token")

		require.Error(t, err)
		assert.Nil(t, claims)
		assert.True(t, apperrors.IsUnauthorized(err))
	})

	t.Run("fails with expired token", func(t *testing.T) {
		svc := NewAuthService(testConfig(), new(MockUserRepository))

		token, err := svc.generateAccessToken(&domain.User{ID: uuid.New()}, time.Now().Add(-time.Minute))
		require.NoError(t, err)

		_, err = svc.ValidateJWT(context.Background(), token)
		assert.True(t, apperrors.IsUnauthorized(err))
	})

	t.Run("fails with wrong secret", func(t *testing.T) {
		cfg1 := testConfig()
		cfg1.JWT.Secret = "secret-one"
		svc1 := NewAuthService(cfg1, new(MockUserRepository))

		cfg2 := testConfig()
		cfg2.JWT.Secret = "secret-two"
		svc2 := NewAuthService(cfg2, new(MockUserRepository))

		token, _ := svc1.generateAccessToken(&domain.User{ID: uuid.New()}, time.Now().Add(time.Hour))

		claims, err := svc2.ValidateJWT(context.Background(), token)

		require.Error(t, err)
		assert.Nil(t, claims)
	})
}
