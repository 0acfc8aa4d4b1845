package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/notesync/internal/dbx"
	"github.com/dmitrijs2005/notesync/internal/models"
	"github.com/dmitrijs2005/notesync/internal/shared"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX

	// now is a test seam for the modification clock.
	now func() time.Time
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

const noteColumns = `id, remote_id, account_id, title, content, category, favorite, modified, etag, status, remote_content, excerpt, scroll_y`

func scanNote(row interface{ Scan(...any) error }) (*models.Note, error) {
	var n models.Note
	var remoteID sql.NullInt64
	err := row.Scan(&n.ID, &remoteID, &n.AccountID, &n.Title, &n.Content, &n.Category,
		&n.Favorite, &n.Modified, &n.ETag, &n.Status, &n.RemoteContent, &n.Excerpt, &n.ScrollY)
	if err != nil {
		return nil, err
	}
	if remoteID.Valid {
		n.RemoteID = &remoteID.Int64
	}
	return &n, nil
}

func nullableRemoteID(n *models.Note) any {
	if n.RemoteID == nil {
		return nil
	}
	return *n.RemoteID
}

func (r *SQLiteRepository) Create(ctx context.Context, n *models.Note) (int64, error) {
	if n.Modified == 0 {
		n.Modified = r.now().Unix()
	}
	n.Status = models.StatusLocalEdited
	n.Excerpt = models.GenerateExcerpt(n.Content, n.Title)

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO notes (remote_id, account_id, title, content, category, favorite, modified, etag, status, remote_content, excerpt, scroll_y)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, '', ?, ?)
	`, nullableRemoteID(n), n.AccountID, n.Title, n.Content, n.Category, n.Favorite,
		n.Modified, n.ETag, n.Status, n.Excerpt, n.ScrollY)
	if err != nil {
		return 0, fmt.Errorf("failed to insert note: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read note id: %w", err)
	}
	n.ID = id
	return id, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*models.Note, error) {
	n, err := scanNote(r.db.QueryRowContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select note %d: %w", id, err)
	}
	return n, nil
}

func (r *SQLiteRepository) GetByAccount(ctx context.Context, accountID int64) ([]models.Note, error) {
	return r.list(ctx, `SELECT `+noteColumns+` FROM notes WHERE account_id = ? ORDER BY modified DESC`, accountID)
}

func (r *SQLiteRepository) GetLocalModified(ctx context.Context, accountID int64) ([]models.Note, error) {
	return r.list(ctx, `SELECT `+noteColumns+` FROM notes WHERE account_id = ? AND status != ? ORDER BY modified`,
		accountID, models.StatusClean)
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]models.Note, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select notes: %w", err)
	}
	defer rows.Close()

	var result []models.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note row: %w", err)
		}
		result = append(result, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate note rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) SaveLocalEdit(ctx context.Context, n *models.Note) error {
	n.Modified = r.now().Unix()
	n.Status = models.StatusLocalEdited
	n.Excerpt = models.GenerateExcerpt(n.Content, n.Title)

	_, err := r.db.ExecContext(ctx, `
		UPDATE notes SET title = ?, content = ?, category = ?, favorite = ?, modified = ?, status = ?, excerpt = ?, scroll_y = ?
		WHERE id = ?
	`, n.Title, n.Content, n.Category, n.Favorite, n.Modified, n.Status, n.Excerpt, n.ScrollY, n.ID)
	if err != nil {
		return fmt.Errorf("failed to save edit for note %d: %w", n.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) MarkDeleted(ctx context.Context, id int64) error {
	// a note that has never been pushed can simply vanish
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM notes WHERE id = ? AND remote_id IS NULL`, id)
	if err != nil {
		return fmt.Errorf("failed to delete local-only note %d: %w", id, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected > 0 {
		return nil
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE notes SET status = ? WHERE id = ?`, models.StatusLocalDeleted, id)
	if err != nil {
		return fmt.Errorf("failed to mark note %d deleted: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, id int64, status models.SyncStatus) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM notes WHERE id = ? AND status = ?`, id, status)
	if err != nil {
		return fmt.Errorf("failed to delete note %d: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateRemoteID(ctx context.Context, id int64, remoteID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE notes SET remote_id = ? WHERE id = ?`, remoteID, id)
	if err != nil {
		return fmt.Errorf("failed to set remote id for note %d: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) ApplyPushResult(ctx context.Context, id int64, pushedContent string, remote *models.ServerNote) (bool, error) {
	excerpt := models.GenerateExcerpt(remote.Content, remote.Title)
	res, err := r.db.ExecContext(ctx, `
		UPDATE notes SET status = ?, title = ?, content = ?, category = ?, favorite = ?, modified = ?, etag = ?, remote_content = '', excerpt = ?
		WHERE id = ? AND status = ? AND content = ?
	`, models.StatusClean, remote.Title, remote.Content, remote.Category, remote.Favorite,
		remote.Modified, remote.ETag, excerpt, id, models.StatusLocalEdited, pushedContent)
	if err != nil {
		return false, fmt.Errorf("failed to apply push result for note %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows for note %d: %w", id, err)
	}
	return affected > 0, nil
}

func (r *SQLiteRepository) SetConflict(ctx context.Context, id int64, etag string, remoteContent string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE notes SET etag = ?, remote_content = ?
		WHERE id = ? AND status = ?
	`, etag, remoteContent, id, models.StatusLocalEdited)
	if err != nil {
		return fmt.Errorf("failed to record conflict for note %d: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) InsertPulled(ctx context.Context, accountID int64, remote *models.ServerNote) (int64, error) {
	excerpt := models.GenerateExcerpt(remote.Content, remote.Title)
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO notes (remote_id, account_id, title, content, category, favorite, modified, etag, status, remote_content, excerpt, scroll_y)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, '', ?, 0)
	`, remote.RemoteID, accountID, remote.Title, remote.Content, remote.Category,
		remote.Favorite, remote.Modified, remote.ETag, models.StatusClean, excerpt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert pulled note %d: %w", remote.RemoteID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read note id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) ApplyPulledState(ctx context.Context, id int64, remote *models.ServerNote) (bool, error) {
	excerpt := models.GenerateExcerpt(remote.Content, remote.Title)
	res, err := r.db.ExecContext(ctx, `
		UPDATE notes SET title = ?, content = ?, category = ?, favorite = ?, modified = ?, etag = ?, excerpt = ?
		WHERE id = ? AND status = ?
	`, remote.Title, remote.Content, remote.Category, remote.Favorite, remote.Modified,
		remote.ETag, excerpt, id, models.StatusClean)
	if err != nil {
		return false, fmt.Errorf("failed to apply pulled state for note %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows for note %d: %w", id, err)
	}
	return affected > 0, nil
}
