package accounts

import (
	"context"

	"github.com/dmitrijs2005/notesync/internal/models"
)

// Repository describes persistence for server accounts and their sync state.
// Implementations are backed by the local SQLite database.
type Repository interface {
	// Create inserts a new account and returns its id.
	Create(ctx context.Context, account *models.Account) (int64, error)

	// GetByID returns an account, or shared.ErrAccountNotFound.
	GetByID(ctx context.Context, id int64) (*models.Account, error)

	// GetByName returns the account with the given unique account name.
	GetByName(ctx context.Context, name string) (*models.Account, error)

	// GetAll lists every configured account.
	GetAll(ctx context.Context) ([]models.Account, error)

	// UpdateSyncState persists the watermark and notes-list ETag after a
	// fully successful cycle.
	UpdateSyncState(ctx context.Context, id int64, modified int64, notesETag string) error

	// UpdateCapabilities stores the outcome of a capabilities fetch: the new
	// ETag, brand colors and the advertised API version list.
	UpdateCapabilities(ctx context.Context, id int64, caps *models.Capabilities) error

	// Delete removes the account and, via cascade, its notes.
	Delete(ctx context.Context, id int64) error

	// SetCredentials stores the encrypted credential blob for the account.
	SetCredentials(ctx context.Context, id int64, sealed []byte) error

	// GetCredentials returns the encrypted credential blob, nil if unset.
	GetCredentials(ctx context.Context, id int64) ([]byte, error)
}
