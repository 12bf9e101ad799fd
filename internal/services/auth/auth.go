// Package services содержит логику бизнес-уровня для работы с пользователями и аутентификацией.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rasbandhu/evaluation-service/internal/lib/jwt"
	"github.com/rasbandhu/evaluation-service/internal/lib/password"
	"github.com/rasbandhu/evaluation-service/internal/models"
)

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// RegisterUser сохраняет нового пользователя и возвращает его UID.
	RegisterUser(ctx context.Context, user models.User) (string, error)

	// GetUserByEmail возвращает пользователя по почте или ошибку, если не найден.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUser возвращает пользователя по UID.
	GetUser(ctx context.Context, userUID string) (*models.User, error)

	// UpdateUserProfile обновляет профильные поля пользователя.
	UpdateUserProfile(ctx context.Context, userUID, name, phone, avatarURL string) error

	// SetUserRole меняет роль пользователя.
	SetUserRole(ctx context.Context, userUID, role string) error

	// ListUsersByRole возвращает пользователей с заданной ролью.
	ListUsersByRole(ctx context.Context, role string, limit, offset int) ([]*models.User, error)
}

// AuthService отвечает за регистрацию, авторизацию, валидацию JWT
// и ведение реестра ролей.
type AuthService struct {
	users    UserRepository
	jwtMaker jwt.Maker
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(users UserRepository, jwtMaker jwt.Maker) *AuthService {
	return &AuthService{
		users:    users,
		jwtMaker: jwtMaker,
	}
}

// Register создает нового пользователя с хэшированием пароля и дефолтной ролью "student".
func (s *AuthService) Register(ctx context.Context, email, rawPassword string) (string, error) {
	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return "", err
	}
	user := models.User{
		Email:        email,
		AuthMethod:   "password",
		PasswordHash: hashed,
		Role:         models.RoleStudent, // дефолтная роль при регистрации
	}
	return s.users.RegisterUser(ctx, user)
}

// Login проверяет пароль пользователя и генерирует JWT.
func (s *AuthService) Login(ctx context.Context, email, rawPassword string) (token, role string, err error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return "", "", err
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return "", "", errors.New("invalid credentials")
	}
	token, err = s.jwtMaker.GenerateToken(user.Email, user.Role, user.UID)
	if err != nil {
		return "", "", err
	}
	return token, user.Role, nil
}

// ValidateToken проверяет JWT и возвращает информацию о пользователе, роль и признак валидности.
func (s *AuthService) ValidateToken(_ context.Context, token string) (*models.User, string, bool, error) {
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, "", false, err
	}
	user := &models.User{
		Email: claims.Username,
		Role:  claims.Role,
		UID:   claims.UserUID,
	}
	return user, claims.Role, true, nil
}

// GetProfile возвращает профиль пользователя по UID.
func (s *AuthService) GetProfile(ctx context.Context, userUID string) (*models.User, error) {
	return s.users.GetUser(ctx, userUID)
}

// UpdateProfile обновляет профильные поля пользователя.
func (s *AuthService) UpdateProfile(ctx context.Context, userUID, name, phone, avatarURL string) error {
	if name == "" {
		return fmt.Errorf("%w: name", models.ErrMissingField)
	}
	return s.users.UpdateUserProfile(ctx, userUID, name, phone, avatarURL)
}

// SetRole меняет роль пользователя. Доступно только администратору,
// проверка роли вызывающего выполняется на уровне HTTP.
func (s *AuthService) SetRole(ctx context.Context, userUID, role string) error {
	switch role {
	case models.RoleStudent, models.RoleMentor, models.RoleAdmin:
	default:
		return fmt.Errorf("unknown role: %s", role)
	}
	return s.users.SetUserRole(ctx, userUID, role)
}

// ListMentors возвращает реестр менторов для административной панели.
func (s *AuthService) ListMentors(ctx context.Context, limit, offset int) ([]*models.User, error) {
	return s.users.ListUsersByRole(ctx, models.RoleMentor, limit, offset)
}
