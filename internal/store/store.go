package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/leadline/crm-cli/internal/model"
)

// ErrDuplicatePhone is returned by CreateClient when the phone number
// already exists in the clients table. The unique index is the final safety
// net behind the importer's own duplicate checks.
var ErrDuplicatePhone = eris.New("duplicate phone")

// Store defines the persistence boundary consumed by the import pipeline.
type Store interface {
	// ListPhones returns every phone number currently in the client store.
	ListPhones(ctx context.Context) (map[string]struct{}, error)

	// CreateClient persists one new client and returns its ID. Returns
	// ErrDuplicatePhone on a phone collision.
	CreateClient(ctx context.Context, client model.Client) (string, error)

	// ListStatuses returns the operator-managed statuses in display order.
	ListStatuses(ctx context.Context) ([]model.Status, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
