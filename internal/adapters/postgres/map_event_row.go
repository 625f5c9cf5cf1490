package postgres

import "github.com/mapply/mapply/internal/core/domain"

// MapEventRow is the flat shape of a map event as stored in map_events.
type MapEventRow struct {
	ID          int64   `db:"id"`
	Title       string  `db:"title"`
	Description string  `db:"description"`
	Lat         float64 `db:"lat"`
	Lng         float64 `db:"lng"`
}

// ToRow flattens a map event's position into top-level lat/lng columns.
func ToRow(m domain.MapEvent) MapEventRow {
	return MapEventRow{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		Lat:         m.Position.Lat,
		Lng:         m.Position.Lng,
	}
}

// FromRow nests lat/lng back into a position.
func FromRow(r MapEventRow) domain.MapEvent {
	return domain.MapEvent{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Position:    domain.Position{Lat: r.Lat, Lng: r.Lng},
	}
}
