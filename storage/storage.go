package storage

import (
	"context"
	"errors"

	"github.com/matheuscscp/fairshare/models"
)

type (
	// Store persists sessions, their items, participants and claims.
	Store interface {
		CreateSession(ctx context.Context, beemHandle string, items models.Receipt) (*models.Session, error)
		GetSession(ctx context.Context, slug string) (*models.Session, error)
		ReplaceItems(ctx context.Context, slug string, items models.Receipt) (*models.Session, error)
		EditItems(ctx context.Context, slug string, edit ItemsEditor) (*models.Session, error)
		DeleteSession(ctx context.Context, slug string) error

		AddParticipant(ctx context.Context, slug, name string) (*models.Participant, error)
		GetParticipant(ctx context.Context, slug, participantID string) (*models.Participant, error)
		ListParticipants(ctx context.Context, slug string) ([]*models.Participant, error)

		ListAllocations(ctx context.Context, slug string) ([]*models.Allocation, error)
		UpsertAllocation(ctx context.Context, slug, participantID string, claims []models.ClaimedItem, validate ClaimValidator) (*AllocationUpdate, error)

		Ping(ctx context.Context) error
		Close() error
	}

	// AllocationUpdate is the outcome of UpsertAllocation. Completed is set
	// only for the update that claimed the last outstanding unit of the
	// receipt, as seen inside the claim transaction.
	AllocationUpdate struct {
		Allocation *models.Allocation
		Summary    *models.Summary
		Completed  bool
	}

	// ItemsEditor transforms the current items of a session into new ones.
	ItemsEditor func(items models.Receipt) (models.Receipt, error)

	// ClaimValidator checks the claims of participantID against the current
	// items and allocations, returning the claims to store.
	ClaimValidator func(receipt models.Receipt, allocations []*models.Allocation,
		participantID string, claims []models.ClaimedItem) ([]models.ClaimedItem, error)
)

var (
	// ErrNotFound ...
	ErrNotFound = errors.New("not found")

	// ErrUnsupportedDriver ...
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)
