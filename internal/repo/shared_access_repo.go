package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/hexavel/clientshare/internal/model"
	"github.com/hexavel/clientshare/internal/pkg/dbutil"
	appErr "github.com/hexavel/clientshare/internal/pkg/errors"
)

type SharedAccessRepo struct {
	db *sql.DB
}

func NewSharedAccessRepo(db *sql.DB) *SharedAccessRepo {
	return &SharedAccessRepo{db: db}
}

func (r *SharedAccessRepo) GetByClientAndUser(ctx context.Context, clientID, userID string) (*model.SharedAccess, error) {
	where := map[string]interface{}{
		"client_id": clientID,
		"user_id":   userID,
	}
	sqlStr, args, err := builder.BuildSelect("shared_access", where,
		[]string{"id", "client_id", "user_id", "granted_by", "permission", "ctime"})
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
	var grant model.SharedAccess
	if err := rows.Scan(&grant.ID, &grant.ClientID, &grant.UserID, &grant.GrantedBy, &grant.Permission, &grant.Ctime); err != nil {
		return nil, err
	}
	return &grant, nil
}

func (r *SharedAccessRepo) CountByClient(ctx context.Context, clientID string) (int, error) {
	sqlStr, args := dbutil.Finalize(
		`SELECT COUNT(1) FROM shared_access WHERE client_id = ?`,
		[]interface{}{clientID},
	)
	var count int
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

type GrantDetail struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Permission  string `json:"permission"`
	Ctime       int64  `json:"ctime"`
}

func (r *SharedAccessRepo) ListByClient(ctx context.Context, clientID string) ([]GrantDetail, error) {
	sqlStr := `
		SELECT sa.user_id, COALESCE(u.display_name, ''), COALESCE(u.email, ''), sa.permission, sa.ctime
		FROM shared_access sa
		LEFT JOIN users u ON u.id = sa.user_id
		WHERE sa.client_id = ?
		ORDER BY sa.ctime DESC
	`
	sqlStr, args := dbutil.Finalize(sqlStr, []interface{}{clientID})
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	items := make([]GrantDetail, 0)
	for rows.Next() {
		var item GrantDetail
		if err := rows.Scan(&item.UserID, &item.DisplayName, &item.Email, &item.Permission, &item.Ctime); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

type SharedClient struct {
	ClientID   string `json:"client_id"`
	Name       string `json:"name"`
	OwnerID    string `json:"owner_id"`
	Permission string `json:"permission"`
	Ctime      int64  `json:"ctime"`
}

// ListByUser returns the client records shared with a user, for the
// redeemer-side dashboard listing.
func (r *SharedAccessRepo) ListByUser(ctx context.Context, userID string) ([]SharedClient, error) {
	sqlStr := `
		SELECT sa.client_id, c.name, c.owner_id, sa.permission, sa.ctime
		FROM shared_access sa
		JOIN clients c ON c.id = sa.client_id AND c.state = ?
		WHERE sa.user_id = ?
		ORDER BY sa.ctime DESC
	`
	sqlStr, args := dbutil.Finalize(sqlStr, []interface{}{ClientStateNormal, userID})
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	items := make([]SharedClient, 0)
	for rows.Next() {
		var item SharedClient
		if err := rows.Scan(&item.ClientID, &item.Name, &item.OwnerID, &item.Permission, &item.Ctime); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *SharedAccessRepo) DeleteByClientAndUser(ctx context.Context, clientID, userID string) error {
	sqlStr, args, err := builder.BuildDelete("shared_access", map[string]interface{}{
		"client_id": clientID,
		"user_id":   userID,
	})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}
