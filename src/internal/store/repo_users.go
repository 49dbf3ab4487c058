package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mentorhub/interview-service/src/internal/model"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

func (r *Repositories) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	r.Log.Debug("CreateUser: start", zap.String("user", u.UserID))

	var exists bool
	if err := r.DB.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE user_id=$1)`, u.UserID).Scan(&exists); err != nil {
		r.Log.Error("CreateUser: check user exists failed", zap.Error(err))
		return model.User{}, err
	}
	if exists {
		r.Log.Debug("CreateUser: user_id conflict", zap.String("user", u.UserID))
		return model.User{}, fmt.Errorf("user_id %s already exists", u.UserID)
	}

	if _, err := r.DB.ExecContext(ctx,
		`INSERT INTO users(user_id, name, roles) VALUES($1,$2,$3)`,
		u.UserID, u.Name, pq.Array(u.Roles)); err != nil {
		r.Log.Error("CreateUser: insert failed", zap.String("user", u.UserID), zap.Error(err))
		return model.User{}, err
	}

	r.Log.Info("CreateUser: success", zap.String("user", u.UserID))
	return u, nil
}

func (r *Repositories) GetUser(ctx context.Context, userID string) (model.User, error) {
	r.Log.Debug("GetUser: start", zap.String("user", userID))
	var u model.User
	if err := r.DB.QueryRowContext(ctx, `SELECT user_id, name, roles FROM users WHERE user_id=$1`, userID).
		Scan(&u.UserID, &u.Name, pq.Array(&u.Roles)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.Log.Debug("GetUser: not found", zap.String("user", userID))
			return model.User{}, model.ErrNotFound
		}
		r.Log.Error("GetUser: query failed", zap.Error(err))
		return model.User{}, err
	}
	r.Log.Debug("GetUser: success", zap.String("user", userID))
	return u, nil
}

// grantRoleTx adds the role to the user's role set. Idempotent: a user
// already holding the role is left untouched, so concurrent grants from
// different interviews commute.
func (r *Repositories) grantRoleTx(ctx context.Context, tx *sql.Tx, userID, role string) error {
	r.Log.Debug("grantRoleTx: start", zap.String("user", userID), zap.String("role", role))
	res, err := tx.ExecContext(ctx,
		`UPDATE users SET roles = array_append(roles, $2) WHERE user_id=$1 AND NOT ($2 = ANY(roles))`,
		userID, role)
	if err != nil {
		r.Log.Error("grantRoleTx: update failed", zap.String("user", userID), zap.Error(err))
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		r.Log.Debug("grantRoleTx: role granted", zap.String("user", userID), zap.String("role", role))
	}
	return nil
}
