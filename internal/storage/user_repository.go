package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/bnb-reservations/backend/internal/storage/models"
)

// ErrDuplicateMail is returned when an account already uses the mail address.
var ErrDuplicateMail = errors.New("mail address already registered")

// UserRepository provides data access for user accounts.
type UserRepository struct {
	BaseRepository
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

const userColumns = `id, mail, name, phone, password_hash, role, created_at, updated_at`

// Create inserts a new user. Mail addresses are stored lower-cased.
func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	u.ID = GenerateID()
	u.Mail = normalizeMail(u.Mail)
	u.CreatedAt = r.Now()
	u.UpdatedAt = r.Now()
	if u.Role == "" {
		u.Role = models.RoleGuest
	}

	_, err := r.Q().ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		u.ID, u.Mail, u.Name, u.Phone, u.PasswordHash, u.Role, u.CreatedAt, u.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateMail
	}
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetByMail retrieves a user by mail address, ignoring case.
func (r *UserRepository) GetByMail(ctx context.Context, mail string) (*models.User, error) {
	return r.getOne(ctx, "mail = ?", normalizeMail(mail))
}

func (r *UserRepository) getOne(ctx context.Context, where string, arg any) (*models.User, error) {
	u := &models.User{}

	err := r.Q().QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg).Scan(
		&u.ID, &u.Mail, &u.Name, &u.Phone, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}

	return u, nil
}

// Update saves profile fields, role and password hash.
func (r *UserRepository) Update(ctx context.Context, u *models.User) error {
	u.Mail = normalizeMail(u.Mail)
	u.UpdatedAt = r.Now()

	result, err := r.Q().ExecContext(ctx, `
		UPDATE users SET
			mail = ?, name = ?, phone = ?, password_hash = ?, role = ?, updated_at = ?
		WHERE id = ?
	`, u.Mail, u.Name, u.Phone, u.PasswordHash, u.Role, u.UpdatedAt, u.ID)
	if isUniqueViolation(err) {
		return ErrDuplicateMail
	}
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}

	return checkAffected(result)
}

func normalizeMail(mail string) string {
	return strings.ToLower(strings.TrimSpace(mail))
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
