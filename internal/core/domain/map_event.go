package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	MaxTitleLength       = 64
	MaxDescriptionLength = 512
)

// MapEvent is a titled, described, geolocated point of interest.
type MapEvent struct {
	ID          int64    `json:"id,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Position    Position `json:"position"`
}

// Normalize trims surrounding whitespace from the text fields.
func (m *MapEvent) Normalize() {
	m.Title = strings.TrimSpace(m.Title)
	m.Description = strings.TrimSpace(m.Description)
}

// Validate normalizes m and checks every field constraint.
func (m *MapEvent) Validate() error {
	m.Normalize()
	in := mapEventInput{
		Title:       &m.Title,
		Description: &m.Description,
		Position:    &positionInput{Lat: &m.Position.Lat, Lng: &m.Position.Lng},
	}
	if m.ID != 0 {
		in.ID = &m.ID
	}
	return validateInput(&in)
}

// mapEventInput mirrors MapEvent with pointer fields so that missing keys
// can be told apart from zero values.
type mapEventInput struct {
	ID          *int64         `json:"id" validate:"omitempty,gte=1"`
	Title       *string        `json:"title" validate:"required,min=1,max=64"`
	Description *string        `json:"description" validate:"required,min=1,max=512"`
	Position    *positionInput `json:"position" validate:"required"`
}

type positionInput struct {
	Lat *float64 `json:"lat" validate:"required,finite,gte=-90,lte=90"`
	Lng *float64 `json:"lng" validate:"required,finite,gte=-180,lte=180"`
}

// ParseMapEvent decodes a JSON document into a validated MapEvent.
// Any structural problem (empty body, not an object, wrong field types)
// is reported as ErrValidation, the same as a constraint violation.
// Keys are matched exactly; "TITLE" does not supply "title".
func ParseMapEvent(data []byte) (MapEvent, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return MapEvent{}, &ValidationError{Violations: []string{"body must be a JSON object"}}
	}

	in, err := decodeInput(data)
	if err != nil {
		return MapEvent{}, &ValidationError{Violations: []string{err.Error()}}
	}

	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		in.Title = &t
	}
	if in.Description != nil {
		d := strings.TrimSpace(*in.Description)
		in.Description = &d
	}

	if err := validateInput(&in); err != nil {
		return MapEvent{}, err
	}

	m := MapEvent{
		Title:       *in.Title,
		Description: *in.Description,
		Position:    Position{Lat: *in.Position.Lat, Lng: *in.Position.Lng},
	}
	if in.ID != nil {
		m.ID = *in.ID
	}
	return m, nil
}

// decodeInput fills a mapEventInput from the exact-case keys of an object.
// encoding/json alone would also accept keys that differ only in case.
func decodeInput(data []byte) (mapEventInput, error) {
	var in mapEventInput

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return in, err
	}
	if err := decodeField(fields, "id", &in.ID); err != nil {
		return in, err
	}
	if err := decodeField(fields, "title", &in.Title); err != nil {
		return in, err
	}
	if err := decodeField(fields, "description", &in.Description); err != nil {
		return in, err
	}

	raw, ok := fields["position"]
	if !ok || string(raw) == "null" {
		return in, nil
	}
	var pos map[string]json.RawMessage
	if err := json.Unmarshal(raw, &pos); err != nil {
		return in, fmt.Errorf("position: %w", err)
	}
	in.Position = &positionInput{}
	if err := decodeField(pos, "lat", &in.Position.Lat); err != nil {
		return in, fmt.Errorf("position: %w", err)
	}
	if err := decodeField(pos, "lng", &in.Position.Lng); err != nil {
		return in, fmt.Errorf("position: %w", err)
	}
	return in, nil
}

// decodeField unmarshals fields[key] into dst. A missing key leaves dst
// untouched.
func decodeField(fields map[string]json.RawMessage, key string, dst any) error {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}
