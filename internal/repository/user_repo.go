package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"go-auth-api/internal/model"
)

// DBTX is the subset of pgxpool.Pool used by the repositories.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const userColumns = `id::text, email, COALESCE(phone, ''), password_hash, roles, refresh_token, created_at, updated_at`

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (model.User, error) {
	return r.findOne(ctx, "email", `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *UserRepository) FindByPhone(ctx context.Context, phone string) (model.User, error) {
	return r.findOne(ctx, "phone", `SELECT `+userColumns+` FROM users WHERE phone = $1`, phone)
}

// FindByRefreshToken matches the persisted token exactly. An empty token never
// matches, since empty means no active session.
func (r *UserRepository) FindByRefreshToken(ctx context.Context, refreshToken string) (model.User, error) {
	if refreshToken == "" {
		return model.User{}, oops.Code("USER_NOT_FOUND").With("lookup", "refresh_token").Wrap(model.ErrUserNotFound)
	}
	return r.findOne(ctx, "refresh_token",
		`SELECT `+userColumns+` FROM users WHERE refresh_token = $1 AND refresh_token <> ''`, refreshToken)
}

func (r *UserRepository) Create(ctx context.Context, in model.NewUser) (model.User, error) {
	roles := in.Roles
	if len(roles) == 0 {
		roles = model.DefaultRoles
	}
	now := time.Now().UTC()

	row := r.db.QueryRow(ctx,
		`INSERT INTO users (id, email, phone, password_hash, roles, refresh_token, created_at, updated_at)
		 VALUES ($1, $2, NULLIF($3, ''), $4, $5, '', $6, $6)
		 RETURNING `+userColumns,
		uuid.NewString(), in.Email, strings.TrimSpace(in.Phone), in.PasswordHash, roles, now)

	u, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return model.User{}, oops.Code("USER_ALREADY_EXISTS").
				With("constraint", pgErr.ConstraintName).
				Wrap(model.ErrUserAlreadyExists)
		}
		return model.User{}, oops.Code("USER_STORE_CREATE_FAILED").
			With("operation", "insert user").
			Wrap(err)
	}
	return u, nil
}

// SetRefreshToken overwrites the stored token. An empty token ends the session.
func (r *UserRepository) SetRefreshToken(ctx context.Context, userID string, refreshToken string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET refresh_token = $2, updated_at = $3 WHERE id = $1`,
		userID, refreshToken, time.Now().UTC())
	if err != nil {
		return oops.Code("USER_STORE_UPDATE_FAILED").
			With("operation", "set refresh token").
			With("user_id", userID).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").With("user_id", userID).Wrap(model.ErrUserNotFound)
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, lookup string, query string, arg string) (model.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, oops.Code("USER_NOT_FOUND").With("lookup", lookup).Wrap(model.ErrUserNotFound)
	}
	if err != nil {
		return model.User{}, oops.Code("USER_STORE_FIND_FAILED").
			With("operation", "find user").
			With("lookup", lookup).
			Wrap(err)
	}
	return u, nil
}

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.Phone, &u.PasswordHash, &u.Roles, &u.RefreshToken, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	if u.Roles == nil {
		u.Roles = []string{}
	}
	return u, nil
}
