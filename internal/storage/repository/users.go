package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rasbandhu/evaluation-service/internal/models"
)

// RegisterUser сохраняет нового пользователя и возвращает его UID.
func (s *Storage) RegisterUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.RegisterUser"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newUID string
	query := `INSERT INTO users (name, email, phone, avatar_url, auth_method, password_hash, role)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING uid`
	if err := s.DB.QueryRowContext(ctx, query,
		user.Name, user.Email, user.Phone, user.AvatarURL, user.AuthMethod,
		user.PasswordHash, user.Role).Scan(&newUID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newUID, nil
}

// GetUserByEmail возвращает пользователя по его почте.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	return s.getUser(ctx, op, `SELECT uid, name, email, phone, avatar_url, auth_method,
			      password_hash, role, created_at
			  FROM users WHERE email = $1`, email)
}

// GetUser возвращает пользователя по его UID.
func (s *Storage) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	const op = "storage.GetUser"
	return s.getUser(ctx, op, `SELECT uid, name, email, phone, avatar_url, auth_method,
			      password_hash, role, created_at
			  FROM users WHERE uid = $1`, userUID)
}

func (s *Storage) getUser(ctx context.Context, op, query string, arg any) (*models.User, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	u := &models.User{}
	row := s.DB.QueryRowContext(ctx, query, arg)

	var name, phone, avatarURL, passwordHash sql.NullString
	if err := row.Scan(&u.UID, &name, &u.Email, &phone, &avatarURL, &u.AuthMethod,
		&passwordHash, &u.Role, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	u.Name = name.String
	u.Phone = phone.String
	u.AvatarURL = avatarURL.String
	u.PasswordHash = passwordHash.String
	return u, nil
}

// UpdateUserProfile обновляет профильные поля пользователя.
func (s *Storage) UpdateUserProfile(ctx context.Context, userUID, name, phone, avatarURL string) error {
	const op = "storage.UpdateUserProfile"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users SET name = $1, phone = $2, avatar_url = $3 WHERE uid = $4`
	result, err := s.DB.ExecContext(ctx, query, name, phone, avatarURL, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return nil
}

// SetUserRole меняет роль пользователя; используется администратором
// для ведения реестра менторов.
func (s *Storage) SetUserRole(ctx context.Context, userUID, role string) error {
	const op = "storage.SetUserRole"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	result, err := s.DB.ExecContext(ctx, `UPDATE users SET role = $1 WHERE uid = $2`, role, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return nil
}

// ListUsersByRole возвращает пользователей с заданной ролью с пагинацией.
func (s *Storage) ListUsersByRole(ctx context.Context, role string, limit, offset int) ([]*models.User, error) {
	const op = "storage.ListUsersByRole"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, name, email, phone, avatar_url, auth_method, password_hash, role, created_at
			  FROM users
			  WHERE role = $1
			  ORDER BY created_at DESC
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, role, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.User
	for rows.Next() {
		var u models.User
		var name, phone, avatarURL, passwordHash sql.NullString
		if err := rows.Scan(&u.UID, &name, &u.Email, &phone, &avatarURL, &u.AuthMethod,
			&passwordHash, &u.Role, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		u.Name = name.String
		u.Phone = phone.String
		u.AvatarURL = avatarURL.String
		u.PasswordHash = passwordHash.String
		result = append(result, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
