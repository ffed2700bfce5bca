// Copyright (c) 2026 Veyra. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/veyra/internal/platform/apperr"
	"github.com/taibuivan/veyra/internal/platform/database/schema"
	"github.com/taibuivan/veyra/internal/platform/dberr"
)

// # User Repository

// PostgresUserRepository implements the UserRepository interface using pgx.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

/*
Create persists a new identity record into the users.account table.

Description: Deep-persists account metadata, ensuring timestamps are initialized
if not provided.

Parameters:
  - context: context.Context
  - user: *User (Entity to persist)

Returns:
  - error: apperr.Conflict on unique violations, or connectivity errors
*/
func (repository *PostgresUserRepository) Create(context context.Context, user *User) error {
	const query = `
		INSERT INTO users.account (
			id, username, email, passwordhash, roles, activerefreshtoken, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := repository.pool.Exec(context, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Roles,
		user.ActiveRefreshToken,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		return dberr.Wrap(fmt.Errorf("postgres_user_repo_create_failed: %w", err))
	}

	return nil
}

/*
FindByID retrieves an identity record by its unique ID.

Description: Primary key resolution for user accounts.

Parameters:
  - context: context.Context
  - id: string (UUIDv7)

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresUserRepository) FindByID(context context.Context, id string) (*User, error) {
	const query = `
		SELECT id, username, email, passwordhash, roles, activerefreshtoken, createdat, updatedat
		FROM users.account
		WHERE id = $1`

	return repository.scanOne(context, query, id, "User")
}

/*
FindByUsername retrieves an identity record by its canonical username.

Description: Standard lookup for authentication and profile resolution. The
caller is responsible for canonicalizing the username first.

Parameters:
  - context: context.Context
  - username: string

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByUsername(context context.Context, username string) (*User, error) {
	const query = `
		SELECT id, username, email, passwordhash, roles, activerefreshtoken, createdat, updatedat
		FROM users.account
		WHERE username = $1`

	return repository.scanOne(context, query, username, "User")
}

/*
FindByEmail retrieves an identity record by its unique email address.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByEmail(context context.Context, email string) (*User, error) {
	const query = `
		SELECT id, username, email, passwordhash, roles, activerefreshtoken, createdat, updatedat
		FROM users.account
		WHERE email = $1`

	return repository.scanOne(context, query, email, "User")
}

/*
Update persists changes to an identity's mutable profile fields.

Description: Synchronizes the in-memory user state with the database,
refreshing the updatedat timestamp.

Parameters:
  - context: context.Context
  - user: *User

Returns:
  - error: Update failures
*/
func (repository *PostgresUserRepository) Update(context context.Context, user *User) error {
	const query = `
		UPDATE users.account
		SET email = $2, updatedat = $3
		WHERE id = $1`

	user.UpdatedAt = time.Now()
	_, err := repository.pool.Exec(context, query,
		user.ID,
		user.Email,
		user.UpdatedAt,
	)

	if err != nil {
		return dberr.Wrap(fmt.Errorf("postgres_user_repo_update_failed: %w", err))
	}

	return nil
}

/*
UpdatePassword updates only the password hash for a specific identity.

Parameters:
  - context: context.Context
  - userID: string
  - newHash: string

Returns:
  - error: Execution errors
*/
func (repository *PostgresUserRepository) UpdatePassword(context context.Context, userID, newHash string) error {
	const query = `
		UPDATE users.account
		SET passwordhash = $2, updatedat = $3
		WHERE id = $1`

	_, err := repository.pool.Exec(context, query, userID, newHash, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_update_password_failed: %w", err)
	}

	return nil
}

/*
UpdateRefreshToken overwrites the identity's single active refresh token.

Description: One atomic UPDATE on one row. Concurrent issuance for the same
identity races at this statement and the later write wins.

Parameters:
  - context: context.Context
  - userID: string
  - refreshToken: string

Returns:
  - error: Execution errors
*/
func (repository *PostgresUserRepository) UpdateRefreshToken(context context.Context, userID, refreshToken string) error {
	const query = `
		UPDATE users.account
		SET activerefreshtoken = $2, updatedat = $3
		WHERE id = $1`

	_, err := repository.pool.Exec(context, query, userID, refreshToken, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_update_refresh_token_failed: %w", err)
	}

	return nil
}

/*
Remove deletes an identity row outright.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - bool: Whether a row existed and was deleted
  - error: Execution errors
*/
func (repository *PostgresUserRepository) Remove(context context.Context, id string) (bool, error) {
	const query = `DELETE FROM users.account WHERE id = $1`

	tag, err := repository.pool.Exec(context, query, id)
	if err != nil {
		return false, fmt.Errorf("postgres_user_repo_remove_failed: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

/*
FindPage returns one page of identities plus the total count.

Description: Used by the directory listing; ordered by the time-sortable
primary key so pages are stable under concurrent registration.

Parameters:
  - context: context.Context
  - limit: int
  - offset: int

Returns:
  - []User: Page of hydrated entities
  - int: Total row count
  - error: Execution errors
*/
func (repository *PostgresUserRepository) FindPage(context context.Context, limit, offset int) ([]User, int, error) {
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, schema.UserAccount.Table)
	pageQuery := fmt.Sprintf(`
		SELECT %s
		FROM %s
		ORDER BY %s
		LIMIT $1 OFFSET $2`,
		strings.Join(schema.UserAccount.Columns(), ", "),
		schema.UserAccount.Table,
		schema.UserAccount.ID,
	)

	var total int
	if err := repository.pool.QueryRow(context, countQuery).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("postgres_user_repo_count_failed: %w", err)
	}

	rows, err := repository.pool.Query(context, pageQuery, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_user_repo_find_page_failed: %w", err)
	}
	defer rows.Close()

	users := make([]User, 0, limit)
	for rows.Next() {
		var user User
		if err := scanUser(rows, &user); err != nil {
			return nil, 0, fmt.Errorf("postgres_user_repo_scan_failed: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("postgres_user_repo_rows_failed: %w", err)
	}

	return users, total, nil
}

// # Scan Helpers

// scanOne runs a single-row lookup and maps pgx.ErrNoRows onto apperr.NotFound.
func (repository *PostgresUserRepository) scanOne(context context.Context, query, arg, resource string) (*User, error) {
	user := &User{}
	err := scanUser(repository.pool.QueryRow(context, query, arg), user)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(resource)
		}
		return nil, fmt.Errorf("postgres_user_repo_lookup_failed: %w", err)
	}

	return user, nil
}

// scanUser hydrates a User from a row with the canonical column order.
func scanUser(row pgx.Row, user *User) error {
	return row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Roles,
		&user.ActiveRefreshToken,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
}
