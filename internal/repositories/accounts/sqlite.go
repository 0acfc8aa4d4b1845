package accounts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/notesync/internal/dbx"
	"github.com/dmitrijs2005/notesync/internal/models"
	"github.com/dmitrijs2005/notesync/internal/shared"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const accountColumns = `id, url, user_name, account_name, capabilities_etag, notes_etag, modified, api_version, color, text_color`

func scanAccount(row interface{ Scan(...any) error }) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.URL, &a.UserName, &a.AccountName, &a.CapabilitiesETag,
		&a.NotesETag, &a.Modified, &a.APIVersion, &a.Color, &a.TextColor)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, a *models.Account) (int64, error) {
	if a.Color == "" {
		a.Color = models.DefaultColor
	}
	if a.TextColor == "" {
		a.TextColor = models.DefaultTextColor
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (url, user_name, account_name, capabilities_etag, notes_etag, modified, api_version, color, text_color)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.URL, a.UserName, a.AccountName, a.CapabilitiesETag, a.NotesETag, a.Modified, a.APIVersion, a.Color, a.TextColor)
	if err != nil {
		return 0, fmt.Errorf("failed to insert account: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read account id: %w", err)
	}
	a.ID = id
	return id, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	a, err := scanAccount(r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select account %d: %w", id, err)
	}
	return a, nil
}

func (r *SQLiteRepository) GetByName(ctx context.Context, name string) (*models.Account, error) {
	a, err := scanAccount(r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE account_name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select account %q: %w", name, err)
	}
	return a, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select accounts: %w", err)
	}
	defer rows.Close()

	var result []models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account row: %w", err)
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate account rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) UpdateSyncState(ctx context.Context, id int64, modified int64, notesETag string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET modified = ?, notes_etag = ? WHERE id = ?`, modified, notesETag, id)
	if err != nil {
		return fmt.Errorf("failed to update sync state for account %d: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateCapabilities(ctx context.Context, id int64, caps *models.Capabilities) error {
	versions, err := json.Marshal(caps.APIVersions)
	if err != nil {
		return fmt.Errorf("failed to serialize api versions: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE accounts SET capabilities_etag = ?, color = ?, text_color = ?, api_version = ?
		WHERE id = ?
	`, caps.ETag, caps.Color, caps.TextColor, string(versions), id)
	if err != nil {
		return fmt.Errorf("failed to update capabilities for account %d: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account %d: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) SetCredentials(ctx context.Context, id int64, sealed []byte) error {
	_, err := r.db.ExecContext(ctx, `UPDATE accounts SET credentials = ? WHERE id = ?`, sealed, id)
	if err != nil {
		return fmt.Errorf("failed to store credentials for account %d: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) GetCredentials(ctx context.Context, id int64) ([]byte, error) {
	var sealed []byte
	err := r.db.QueryRowContext(ctx, `SELECT credentials FROM accounts WHERE id = ?`, id).Scan(&sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select credentials for account %d: %w", id, err)
	}
	return sealed, nil
}
