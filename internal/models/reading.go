package models

import "time"

// Reading is one ingested distance measurement
type Reading struct {
	ID         string    `json:"id" msgpack:"id"`
	Key        string    `json:"key" msgpack:"key"`
	Value      float64   `json:"value" msgpack:"value"`
	Date       string    `json:"date,omitempty" msgpack:"date"` // Format: 2006-01-02, only for date/time ingestion
	Time       string    `json:"time,omitempty" msgpack:"time"` // Format: 15:04:05
	RecordedAt time.Time `json:"recordedAt" msgpack:"recorded_at"`
}

// FilteredReading is a Reading admitted into the filtered series.
// Rows are append-only.
type FilteredReading struct {
	ID         string    `json:"id" msgpack:"id"`
	ReadingID  string    `json:"readingId" msgpack:"reading_id"`
	Key        string    `json:"key" msgpack:"key"`
	Value      float64   `json:"value" msgpack:"value"`
	Date       string    `json:"date,omitempty" msgpack:"date"`
	Time       string    `json:"time,omitempty" msgpack:"time"`
	RecordedAt time.Time `json:"recordedAt" msgpack:"recorded_at"`
	Seq        int64     `json:"-" msgpack:"seq"` // insertion order
}

// NewFilteredReading copies r into the filtered series shape
func NewFilteredReading(id string, r Reading) FilteredReading {
	return FilteredReading{
		ID:         id,
		ReadingID:  r.ID,
		Key:        r.Key,
		Value:      r.Value,
		Date:       r.Date,
		Time:       r.Time,
		RecordedAt: r.RecordedAt,
	}
}

// ReadingFilter represents query parameters for listing readings
type ReadingFilter struct {
	Key   string `form:"key"`
	Limit int    `form:"limit"` // 0 means all
}
