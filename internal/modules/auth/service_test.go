package auth

import (
	"context"
	"testing"

	"tailorlink/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	if args.Error(0) == nil {
		u.ID = 1
	}
	return args.Error(0)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u := args.Get(0); u != nil {
		return u.(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

type stubJWT struct{}

func (stubJWT) GenerateToken(userID int64, role string) (string, error) {
	return "test-token", nil
}

func TestRegister(t *testing.T) {
	repo := new(MockUserRepository)
	svc := NewService(repo, stubJWT{})

	repo.On("GetByEmail", mock.Anything, "new@example.com").Return(nil, gorm.ErrRecordNotFound)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)

	res, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "New@Example.com ",
		Password: "password123",
		Name:     "New User",
		Role:     "customer",
	})
	require.NoError(t, err)

	assert.Equal(t, "test-token", res.AccessToken)
	assert.Equal(t, "new@example.com", res.User.Email)
	assert.Equal(t, domain.RoleCustomer, res.User.Role)
	assert.NotEqual(t, "password123", res.User.PasswordHash)
	repo.AssertExpectations(t)
}

func TestRegisterEmailTaken(t *testing.T) {
	repo := new(MockUserRepository)
	svc := NewService(repo, stubJWT{})

	repo.On("GetByEmail", mock.Anything, "taken@example.com").
		Return(&domain.User{ID: 5, Email: "taken@example.com"}, nil)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "taken@example.com",
		Password: "password123",
		Name:     "Dup",
		Role:     "tailor",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegisterInvalidRole(t *testing.T) {
	repo := new(MockUserRepository)
	svc := NewService(repo, stubJWT{})

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "x@example.com",
		Password: "password123",
		Name:     "X",
		Role:     "admin",
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLogin(t *testing.T) {
	repo := new(MockUserRepository)
	svc := NewService(repo, stubJWT{})

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &domain.User{ID: 3, Email: "user@example.com", PasswordHash: string(hash), Role: domain.RoleTailor}
	repo.On("GetByEmail", mock.Anything, "user@example.com").Return(user, nil)

	res, err := svc.Login(context.Background(), LoginRequest{Email: "user@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "test-token", res.AccessToken)
	assert.Equal(t, int64(3), res.User.ID)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := new(MockUserRepository)
	svc := NewService(repo, stubJWT{})

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	repo.On("GetByEmail", mock.Anything, "user@example.com").
		Return(&domain.User{ID: 3, Email: "user@example.com", PasswordHash: string(hash)}, nil)

	_, err = svc.Login(context.Background(), LoginRequest{Email: "user@example.com", Password: "nope-wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnknownEmail(t *testing.T) {
	repo := new(MockUserRepository)
	svc := NewService(repo, stubJWT{})

	repo.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, gorm.ErrRecordNotFound)

	_, err := svc.Login(context.Background(), LoginRequest{Email: "ghost@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
