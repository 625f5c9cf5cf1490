package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mapply/mapply/internal/core/domain"
)

const mapEventColumns = "id, title, description, lat, lng"

// MapEventRepo implements ports.MapEventRepository.
type MapEventRepo struct {
	db *DB
}

func NewMapEventRepo(db *DB) *MapEventRepo {
	return &MapEventRepo{db: db}
}

func (r *MapEventRepo) GetByID(ctx context.Context, id int64) (*domain.MapEvent, error) {
	return r.fetchOne(ctx, "get", `
		SELECT `+mapEventColumns+`
		FROM map_events WHERE id = $1
	`, id)
}

func (r *MapEventRepo) List(ctx context.Context) ([]domain.MapEvent, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+mapEventColumns+`
		FROM map_events ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list map events: %w: %w", domain.ErrStorage, err)
	}

	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[MapEventRow])
	if err != nil {
		return nil, fmt.Errorf("list map events: %w: %w", domain.ErrStorage, err)
	}

	events := make([]domain.MapEvent, 0, len(records))
	for _, rec := range records {
		events = append(events, FromRow(rec))
	}
	return events, nil
}

func (r *MapEventRepo) Create(ctx context.Context, event domain.MapEvent) (*domain.MapEvent, error) {
	row := ToRow(event)
	return r.fetchOne(ctx, "create", `
		INSERT INTO map_events (title, description, lat, lng)
		VALUES ($1, $2, $3, $4)
		RETURNING `+mapEventColumns,
		row.Title, row.Description, row.Lat, row.Lng)
}

func (r *MapEventRepo) UpdateByID(ctx context.Context, event domain.MapEvent, id int64) (*domain.MapEvent, error) {
	row := ToRow(event)
	return r.fetchOne(ctx, "update", `
		UPDATE map_events
		SET title = $1, description = $2, lat = $3, lng = $4
		WHERE id = $5
		RETURNING `+mapEventColumns,
		row.Title, row.Description, row.Lat, row.Lng, id)
}

func (r *MapEventRepo) DeleteByID(ctx context.Context, id int64) (*domain.MapEvent, error) {
	return r.fetchOne(ctx, "delete", `
		DELETE FROM map_events WHERE id = $1
		RETURNING `+mapEventColumns, id)
}

// fetchOne runs a single-row statement and maps the outcome onto the
// domain error taxonomy.
func (r *MapEventRepo) fetchOne(ctx context.Context, op, sql string, args ...any) (*domain.MapEvent, error) {
	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%s map event: %w: %w", op, domain.ErrStorage, err)
	}

	rec, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[MapEventRow])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s map event: %w: %w", op, domain.ErrStorage, err)
	}

	event := FromRow(rec)
	return &event, nil
}
