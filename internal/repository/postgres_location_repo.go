package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ratmeow/weather-tracker/internal/model"
)

// PostgresLocationRepo はPostgreSQLを使用した地点カタログのゲートウェイ。
type PostgresLocationRepo struct {
	db DBTX
}

// NewPostgresLocationRepo はPostgresLocationRepoを生成する。
func NewPostgresLocationRepo(db DBTX) *PostgresLocationRepo {
	return &PostgresLocationRepo{db: db}
}

// rowScanner は*sql.Rowと*sql.Rowsの共通部分。
type rowScanner interface {
	Scan(dest ...any) error
}

func scanLocation(s rowScanner) (*model.Location, error) {
	var (
		loc      model.Location
		lat, lon decimal.Decimal
	)
	if err := s.Scan(&loc.ID, &loc.Name, &lat, &lon); err != nil {
		return nil, err
	}
	loc.Coordinates = model.NewCoordinates(lat, lon)
	return &loc, nil
}

// FindByCoordinates は座標が一致する地点を取得する。見つからない場合はnilを返す。
// 比較はNUMERICの値で行うため、末尾の0の有無は区別しない。
func (r *PostgresLocationRepo) FindByCoordinates(ctx context.Context, coordinates model.Coordinates) (*model.Location, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, latitude, longitude
		 FROM locations
		 WHERE latitude = $1 AND longitude = $2`,
		coordinates.Latitude(), coordinates.Longitude(),
	)

	loc, err := scanLocation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find location by coordinates: %w", err)
	}
	return loc, nil
}

// Save は地点を作成する。
// 同一座標の地点が既に存在する場合はmodel.ErrDuplicateKeyを返す。
func (r *PostgresLocationRepo) Save(ctx context.Context, location model.Location) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO locations (id, name, latitude, longitude)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT DO NOTHING`,
		location.ID, location.Name, location.Coordinates.Latitude(), location.Coordinates.Longitude(),
	)
	if isUniqueViolation(err) {
		return model.ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("failed to insert location: %w", err)
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

// compile-time interface check
var _ LocationGateway = (*PostgresLocationRepo)(nil)
