package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/hexavel/clientshare/internal/model"
	"github.com/hexavel/clientshare/internal/pkg/dbutil"
	appErr "github.com/hexavel/clientshare/internal/pkg/errors"
)

const (
	ShareCodeStateActive    = 1
	ShareCodeStateRevoked   = 2
	ShareCodeStateExhausted = 3
	ShareCodeStateExpired   = 4
)

type ShareCodeRepo struct {
	db *sql.DB
}

func NewShareCodeRepo(db *sql.DB) *ShareCodeRepo {
	return &ShareCodeRepo{db: db}
}

var shareCodeFields = []string{
	"id", "client_id", "created_by", "code_hash", "code_fp", "permission",
	"max_uses", "used_count", "state", "expires_at", "ctime", "mtime",
}

func (r *ShareCodeRepo) Create(ctx context.Context, code *model.ShareCode) error {
	data := map[string]interface{}{
		"id":         code.ID,
		"client_id":  code.ClientID,
		"created_by": code.CreatedBy,
		"code_hash":  code.CodeHash,
		"code_fp":    code.CodeFp,
		"permission": code.Permission,
		"max_uses":   code.MaxUses,
		"used_count": code.UsedCount,
		"state":      code.State,
		"expires_at": code.ExpiresAt,
		"ctime":      code.Ctime,
		"mtime":      code.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("share_codes", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *ShareCodeRepo) GetByID(ctx context.Context, codeID string) (*model.ShareCode, error) {
	sqlStr, args, err := builder.BuildSelect("share_codes", map[string]interface{}{"id": codeID}, shareCodeFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	var code model.ShareCode
	if err := scanShareCode(rows, &code); err != nil {
		return nil, err
	}
	return &code, nil
}

// ListActiveByFingerprint returns the active, unexpired codes matching a
// plaintext fingerprint. The stored hash is salted, so equality lookup on
// the code itself is impossible; the indexed fingerprint narrows the
// candidate set (normally to one row) before the expensive verify.
func (r *ShareCodeRepo) ListActiveByFingerprint(ctx context.Context, fp string, now int64) ([]model.ShareCode, error) {
	where := map[string]interface{}{
		"code_fp":      fp,
		"state":        ShareCodeStateActive,
		"expires_at >": now,
	}
	sqlStr, args, err := builder.BuildSelect("share_codes", where, shareCodeFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	items := make([]model.ShareCode, 0, 1)
	for rows.Next() {
		var code model.ShareCode
		if err := scanShareCode(rows, &code); err != nil {
			return nil, err
		}
		items = append(items, code)
	}
	return items, rows.Err()
}

// CountCreatedSince counts codes an issuer created inside the trailing
// rate-limit window. The quota is computed from the table on every call
// rather than from process memory, so it survives restarts and holds
// across replicas.
func (r *ShareCodeRepo) CountCreatedSince(ctx context.Context, creatorID string, since int64) (int, error) {
	sqlStr, args := dbutil.Finalize(
		`SELECT COUNT(1) FROM share_codes WHERE created_by = ? AND ctime >= ?`,
		[]interface{}{creatorID, since},
	)
	var count int
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// OldestCreatedSince returns the earliest ctime inside the window, used
// to tell a rate-limited issuer how long until a slot frees up.
func (r *ShareCodeRepo) OldestCreatedSince(ctx context.Context, creatorID string, since int64) (int64, error) {
	sqlStr, args := dbutil.Finalize(
		`SELECT COALESCE(MIN(ctime), 0) FROM share_codes WHERE created_by = ? AND ctime >= ?`,
		[]interface{}{creatorID, since},
	)
	var oldest int64
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&oldest); err != nil {
		return 0, err
	}
	return oldest, nil
}

// Consume performs the atomic redemption pair: a conditional use-count
// increment on the code and the grant insert, both inside one
// transaction. The UPDATE only matches while the code is still active
// with uses remaining, so under concurrent redemption at most max_uses
// increments can ever land; a zero-row update means this caller lost
// the race. When the increment reaches max_uses the same statement
// flips the code to the exhausted state.
func (r *ShareCodeRepo) Consume(ctx context.Context, codeID string, grant *model.SharedAccess, now int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	updateStr, updateArgs := dbutil.Finalize(`
		UPDATE share_codes
		SET used_count = used_count + 1,
		    state = CASE WHEN used_count + 1 >= max_uses THEN ? ELSE state END,
		    mtime = ?
		WHERE id = ? AND state = ? AND used_count < max_uses AND expires_at > ?
	`, []interface{}{ShareCodeStateExhausted, now, codeID, ShareCodeStateActive, now})
	result, err := tx.ExecContext(ctx, updateStr, updateArgs...)
	if err != nil {
		if dbutil.IsCheckViolation(err) {
			return appErr.ErrRaceLost
		}
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrRaceLost
	}

	insertStr, insertArgs, err := builder.BuildInsert("shared_access", []map[string]interface{}{{
		"id":         grant.ID,
		"client_id":  grant.ClientID,
		"user_id":    grant.UserID,
		"granted_by": grant.GrantedBy,
		"permission": grant.Permission,
		"ctime":      grant.Ctime,
	}})
	if err != nil {
		return err
	}
	insertStr, insertArgs = dbutil.Finalize(insertStr, insertArgs)
	if _, err := tx.ExecContext(ctx, insertStr, insertArgs...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrAlreadyShared
		}
		return err
	}
	return tx.Commit()
}

// RevokeByClient deactivates every active code for a client and returns
// how many rows changed. Calling it with nothing active is not an error.
func (r *ShareCodeRepo) RevokeByClient(ctx context.Context, clientID string, mtime int64) (int64, error) {
	where := map[string]interface{}{
		"client_id": clientID,
		"state":     ShareCodeStateActive,
	}
	update := map[string]interface{}{
		"state": ShareCodeStateRevoked,
		"mtime": mtime,
	}
	sqlStr, args, err := builder.BuildUpdate("share_codes", where, update)
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *ShareCodeRepo) CountActiveByClient(ctx context.Context, clientID string, now int64) (int, error) {
	sqlStr, args := dbutil.Finalize(
		`SELECT COUNT(1) FROM share_codes WHERE client_id = ? AND state = ? AND expires_at > ?`,
		[]interface{}{clientID, ShareCodeStateActive, now},
	)
	var count int
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// MarkExpired flips active codes past their expiry to the expired state.
// Read paths filter on expires_at themselves; this is hygiene so stale
// rows stop matching the active index.
func (r *ShareCodeRepo) MarkExpired(ctx context.Context, now, mtime int64) (int64, error) {
	sqlStr, args := dbutil.Finalize(
		`UPDATE share_codes SET state = ?, mtime = ? WHERE state = ? AND expires_at <= ?`,
		[]interface{}{ShareCodeStateExpired, mtime, ShareCodeStateActive, now},
	)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanShareCode(rows *sql.Rows, code *model.ShareCode) error {
	return rows.Scan(
		&code.ID, &code.ClientID, &code.CreatedBy, &code.CodeHash, &code.CodeFp,
		&code.Permission, &code.MaxUses, &code.UsedCount, &code.State,
		&code.ExpiresAt, &code.Ctime, &code.Mtime,
	)
}
