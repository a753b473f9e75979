package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/ledger-engine/internal/domain"
)

type accountRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByOwnerID(ctx context.Context, ownerID uuid.UUID) ([]domain.Account, error)
	Create(ctx context.Context, account *domain.Account) error
}

type accountLocker interface {
	Lock(ctx context.Context, ids ...uuid.UUID) (func(), error)
}

type eventPublisher interface {
	Publish(ctx context.Context, events []domain.Event) error
}

type accountRecorder interface {
	RecordAccountOpened(ctx context.Context)
}

type clock func() time.Time
