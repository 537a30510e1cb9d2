package admin

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Admin is a back-office operator who reviews driver applications.
type Admin struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type Repository interface {
	Create(ctx context.Context, a *Admin) error
	GetByEmail(ctx context.Context, email string) (*Admin, error)
}

var ErrAdminNotFound = errors.New("admin not found")
