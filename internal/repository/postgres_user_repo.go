package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/ratmeow/weather-tracker/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーゲートウェイ。
type PostgresUserRepo struct {
	db DBTX
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
// dbには*sql.DBまたは*sql.Txを渡す。
func NewPostgresUserRepo(db DBTX) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByLogin はログイン名でユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByLogin(ctx context.Context, login string) (*model.User, error) {
	var id, hash string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, password_hash FROM users WHERE login = $1`,
		login,
	).Scan(&id, &hash)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by login: %w", err)
	}

	return model.RestoreUser(id, login, hash, nil), nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string, loadLocations bool) (*model.User, error) {
	var login, hash string
	err := r.db.QueryRowContext(ctx,
		`SELECT login, password_hash FROM users WHERE id = $1`,
		id,
	).Scan(&login, &hash)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	var locations []model.Location
	if loadLocations {
		locations, err = r.listLocations(ctx, id)
		if err != nil {
			return nil, err
		}
	}

	return model.RestoreUser(id, login, hash, locations), nil
}

// listLocations はユーザーの保存済み地点を追加順に取得する。
func (r *PostgresUserRepo) listLocations(ctx context.Context, userID string) ([]model.Location, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT l.id, l.name, l.latitude, l.longitude
		 FROM user_locations ul
		 JOIN locations l ON l.id = ul.location_id
		 WHERE ul.user_id = $1
		 ORDER BY ul.created_at, l.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list user locations: %w", err)
	}
	defer rows.Close()

	var locations []model.Location
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user location: %w", err)
		}
		locations = append(locations, *loc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user locations: %w", err)
	}

	return locations, nil
}

// Save はユーザーを保存する。
// 未登録のユーザーはINSERTし、保存済み地点はuser_locationsと差分で突き合わせる。
func (r *PostgresUserRepo) Save(ctx context.Context, user *model.User) error {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`,
		user.ID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check user existence: %w", err)
	}

	if !exists {
		if err := r.insert(ctx, user); err != nil {
			return err
		}
	}

	return r.reconcileLocations(ctx, user)
}

func (r *PostgresUserRepo) insert(ctx context.Context, user *model.User) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, login, password_hash)
		 VALUES ($1, $2, $3)
		 ON CONFLICT DO NOTHING`,
		user.ID, user.Login, user.PasswordHash,
	)
	if isUniqueViolation(err) {
		return model.ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.ErrDuplicateKey
	}
	return nil
}

// reconcileLocations は永続化済みの関連とユーザーの保存済み地点を突き合わせる。
// 保存済みにしか無い関連は削除し、ユーザーにしか無い関連は追加する。
func (r *PostgresUserRepo) reconcileLocations(ctx context.Context, user *model.User) error {
	stored, err := r.storedLocationIDs(ctx, user.ID)
	if err != nil {
		return err
	}
	wanted := user.LocationIDs()

	var stale []string
	for id := range stored {
		if _, ok := wanted[id]; !ok {
			stale = append(stale, id)
		}
	}
	if len(stale) > 0 {
		_, err := r.db.ExecContext(ctx,
			`DELETE FROM user_locations WHERE user_id = $1 AND location_id = ANY($2::uuid[])`,
			user.ID, pq.Array(stale),
		)
		if err != nil {
			return fmt.Errorf("failed to delete user locations: %w", err)
		}
	}

	for _, loc := range user.Locations() {
		if _, ok := stored[loc.ID]; ok {
			continue
		}
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO user_locations (user_id, location_id)
			 VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`,
			user.ID, loc.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert user location: %w", err)
		}
	}

	return nil
}

func (r *PostgresUserRepo) storedLocationIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT location_id FROM user_locations WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list stored location ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan location id: %w", err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate location ids: %w", err)
	}
	return ids, nil
}

// compile-time interface check
var _ UserGateway = (*PostgresUserRepo)(nil)
