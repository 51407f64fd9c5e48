package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/n1kh11p/blokt-sub000/internal/utils"
)

// Optional distinguishes a JSON field that was omitted from one that was sent
// as null. Set is true whenever the key was present.
type Optional[T any] struct {
	Set   bool
	Value *T
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// Cleared reports whether the field was explicitly sent as null.
func (o Optional[T]) Cleared() bool {
	return o.Set && o.Value == nil
}

// Date accepts either a calendar date ("2025-07-01") or an RFC 3339 timestamp.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		d.Time = t.UTC()
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return fmt.Errorf("invalid date %q", raw)
	}
	d.Time = t.UTC()
	return nil
}

// Ptr converts an optional date into the *time.Time the services take.
func (d *Date) Ptr() *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

// OptionalDate unwraps an Optional[Date] into a value and a clear flag.
func OptionalDate(o Optional[Date]) (*time.Time, bool) {
	if o.Value == nil {
		return nil, o.Cleared()
	}
	return o.Value.Ptr(), false
}

// NewPagination builds the pagination block of list responses.
func NewPagination(params utils.PaginationParams, total int64) utils.PaginationResponse {
	return utils.PaginationResponse{
		Page:  params.Page,
		Limit: params.Limit,
		Total: total,
	}
}

// MessageResponse is returned by endpoints without a resource body.
type MessageResponse struct {
	Message string `json:"message"`
}
