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
	ClientStateNormal  = 1
	ClientStateDeleted = 2
)

type ClientRepo struct {
	db *sql.DB
}

func NewClientRepo(db *sql.DB) *ClientRepo {
	return &ClientRepo{db: db}
}

var clientFields = []string{"id", "owner_id", "name", "email", "state", "ctime", "mtime"}

func (r *ClientRepo) Create(ctx context.Context, client *model.Client) error {
	data := map[string]interface{}{
		"id":       client.ID,
		"owner_id": client.OwnerID,
		"name":     client.Name,
		"email":    client.Email,
		"state":    client.State,
		"ctime":    client.Ctime,
		"mtime":    client.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("clients", []map[string]interface{}{data})
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

// GetByOwner scopes the lookup to the owner, so a missing row and a row
// owned by someone else are indistinguishable to the caller.
func (r *ClientRepo) GetByOwner(ctx context.Context, ownerID, clientID string) (*model.Client, error) {
	return r.getOne(ctx, map[string]interface{}{
		"id":       clientID,
		"owner_id": ownerID,
		"state":    ClientStateNormal,
	})
}

func (r *ClientRepo) GetByID(ctx context.Context, clientID string) (*model.Client, error) {
	return r.getOne(ctx, map[string]interface{}{
		"id":    clientID,
		"state": ClientStateNormal,
	})
}

func (r *ClientRepo) getOne(ctx context.Context, where map[string]interface{}) (*model.Client, error) {
	sqlStr, args, err := builder.BuildSelect("clients", where, clientFields)
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
	var client model.Client
	if err := rows.Scan(&client.ID, &client.OwnerID, &client.Name, &client.Email, &client.State, &client.Ctime, &client.Mtime); err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *ClientRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.Client, error) {
	where := map[string]interface{}{
		"owner_id": ownerID,
		"state":    ClientStateNormal,
		"_orderby": "ctime desc",
	}
	sqlStr, args, err := builder.BuildSelect("clients", where, clientFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	items := make([]model.Client, 0)
	for rows.Next() {
		var client model.Client
		if err := rows.Scan(&client.ID, &client.OwnerID, &client.Name, &client.Email, &client.State, &client.Ctime, &client.Mtime); err != nil {
			return nil, err
		}
		items = append(items, client)
	}
	return items, rows.Err()
}

func (r *ClientRepo) Update(ctx context.Context, client *model.Client) error {
	where := map[string]interface{}{
		"id":       client.ID,
		"owner_id": client.OwnerID,
		"state":    ClientStateNormal,
	}
	update := map[string]interface{}{
		"name":  client.Name,
		"email": client.Email,
		"mtime": client.Mtime,
	}
	return r.execExpectRow(ctx, where, update)
}

func (r *ClientRepo) Delete(ctx context.Context, ownerID, clientID string, mtime int64) error {
	where := map[string]interface{}{
		"id":       clientID,
		"owner_id": ownerID,
		"state":    ClientStateNormal,
	}
	update := map[string]interface{}{
		"state": ClientStateDeleted,
		"mtime": mtime,
	}
	return r.execExpectRow(ctx, where, update)
}

func (r *ClientRepo) execExpectRow(ctx context.Context, where, update map[string]interface{}) error {
	sqlStr, args, err := builder.BuildUpdate("clients", where, update)
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
