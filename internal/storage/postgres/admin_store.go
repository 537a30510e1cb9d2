package postgres

import (
	"context"
	"database/sql"

	"github.com/swiftcab/ride-backend/internal/domain/admin"
)

// AdminStore persists back-office operator accounts in Postgres.
type AdminStore struct {
	db *sql.DB
}

// NewAdminStore creates an admin store.
func NewAdminStore(db *sql.DB) *AdminStore {
	return &AdminStore{db: db}
}

func (s *AdminStore) Create(ctx context.Context, a *admin.Admin) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admins (id, email, name, password_hash, created_at)
		VALUES ($1,$2,$3,$4,$5)`,
		a.ID, a.Email, a.Name, a.PasswordHash, a.CreatedAt,
	)
	return err
}

func (s *AdminStore) GetByEmail(ctx context.Context, email string) (*admin.Admin, error) {
	var a admin.Admin
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, name, password_hash, created_at
		FROM admins WHERE email = $1`,
		email,
	).Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, admin.ErrAdminNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
