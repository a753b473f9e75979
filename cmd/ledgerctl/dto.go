package main

import (
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/ledger-engine/internal/domain"
)

type accountDTO struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Number      string    `json:"account_number"`
	Available   int64     `json:"available_balance"`
	Reserved    int64     `json:"reserved_balance"`
	CreditLimit int64     `json:"credit_limit"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toAccountDTO(a *domain.Account) accountDTO {
	return accountDTO{
		ID:          a.ID,
		OwnerID:     a.OwnerID,
		Number:      a.Number,
		Available:   a.Available.Int64(),
		Reserved:    a.Reserved.Int64(),
		CreditLimit: a.CreditLimit.Int64(),
		Status:      string(a.Status),
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}
