package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/eimzo-auth/internal/common"
	"github.com/dmitrijs2005/eimzo-auth/internal/dbx"
	"github.com/dmitrijs2005/eimzo-auth/internal/server/models"
)

const selectColumns = `id, name, email, password, email_verified_at, pinfl, inn,
		 certificate_serial, last_login_at, last_login_ip, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (name, email, password, email_verified_at, pinfl, inn, certificate_serial)
         VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.Name, user.Email, user.Password, user.EmailVerifiedAt,
		user.PINFL, user.INN, user.CertificateSerial).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", common.ErrorConflict, dbx.ConstraintName(err))
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+selectColumns+` FROM users
		 WHERE id = $1
		 `, id)
}

func (r *PostgresRepository) FindByPINFL(ctx context.Context, pinfl string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+selectColumns+` FROM users
		 WHERE pinfl = $1
		 `, pinfl)
}

func (r *PostgresRepository) FindByINN(ctx context.Context, inn string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+selectColumns+` FROM users
		 WHERE inn = $1
		 `, inn)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Name, &user.Email, &user.Password, &user.EmailVerifiedAt,
		&user.PINFL, &user.INN, &user.CertificateSerial,
		&user.LastLoginAt, &user.LastLoginIP, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) UpdateCertificate(ctx context.Context, id string, name string, serial *string) error {
	query :=
		`UPDATE users SET name = $2, certificate_serial = $3, updated_at = now()
		 WHERE id = $1
		 `

	return r.execOne(ctx, query, id, name, serial)
}

func (r *PostgresRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time, ip string) error {
	query :=
		`UPDATE users SET last_login_at = $2, last_login_ip = $3, updated_at = now()
		 WHERE id = $1
		 `

	return r.execOne(ctx, query, id, at, ip)
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}
