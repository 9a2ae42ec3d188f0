package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ledger_backend/internal/models"
)

// UserRepository defines the interface for user-related database operations.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error) // PasswordHash populated
	FindUserByID(ctx context.Context, userID int64) (*models.User, error)
	GetUsers(ctx context.Context) ([]models.User, error)
	UpdateLastLogin(ctx context.Context, userID int64, at time.Time) error
}

type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, email, password, first_name, last_name, is_active, is_staff, is_superuser, date_joined, last_login`

func scanUser(row scanner) (*models.User, error) {
	user := &models.User{}
	var lastLogin sql.NullTime
	err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.FirstName, &user.LastName,
		&user.IsActive, &user.IsStaff, &user.IsSuperuser, &user.DateJoined, &lastLogin,
	)
	if err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		user.LastLogin = &lastLogin.Time
	}
	return user, nil
}

// CreateUser inserts a new user. user.PasswordHash must already be hashed.
func (r *userRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (email, password, first_name, last_name, is_active, is_staff, is_superuser, date_joined)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          RETURNING id`

	if user.DateJoined.IsZero() {
		user.DateJoined = time.Now().UTC()
	}

	err := r.db.QueryRowContext(ctx, query,
		user.Email, user.PasswordHash, user.FirstName, user.LastName,
		user.IsActive, user.IsStaff, user.IsSuperuser, user.DateJoined,
	).Scan(&user.ID)
	if err != nil {
		return wrapWriteError(err, "creating user")
	}
	return nil
}

// FindUserByEmail retrieves a user by the exact email.
func (r *userRepository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: finding user by email %s: %v", ErrDatabaseError, email, err)
	}
	return user, nil
}

// FindUserByID retrieves a user by their ID.
func (r *userRepository) FindUserByID(ctx context.Context, userID int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: finding user by ID %d: %v", ErrDatabaseError, userID, err)
	}
	return user, nil
}

// GetUsers lists all users ordered by ID.
func (r *userRepository) GetUsers(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: querying users: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning user: %v", ErrDatabaseError, err)
		}
		users = append(users, *user)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating user rows: %v", ErrDatabaseError, err)
	}
	return users, nil
}

func (r *userRepository) UpdateLastLogin(ctx context.Context, userID int64, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET last_login = $1 WHERE id = $2`, at, userID)
	if err != nil {
		return fmt.Errorf("%w: updating last login for user ID %d: %v", ErrDatabaseError, userID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for user ID %d: %v", ErrDatabaseError, userID, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
