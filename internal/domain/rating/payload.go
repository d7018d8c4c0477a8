package rating

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

type PayloadKind int

const (
	PayloadUnrecognized PayloadKind = iota
	PayloadList
	PayloadObject
)

// Stats is the precomputed aggregate some ratings deployments attach
// to the payload. When present it wins over recomputing from records.
type Stats struct {
	Average float64
	Count   int
}

// Payload is the decoded ratings response for one space.
type Payload struct {
	Kind    PayloadKind
	Records []Record
	Stats   *Stats
}

// DecodePayload reads the two shapes the ratings API is known to
// return: a bare array of review records, or an object wrapping the
// records with a stats block. Other valid JSON decodes to an
// unrecognized payload, which renders as "no reviews yet" rather than
// an error; only non-JSON input fails.
func DecodePayload(data []byte) (Payload, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Payload{}, errors.New("rating: empty payload")
	}
	switch trimmed[0] {
	case '[':
		var records []Record
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return Payload{}, fmt.Errorf("rating: decode payload: %w", err)
		}
		return Payload{Kind: PayloadList, Records: records}, nil
	case '{':
		var body struct {
			Ratings []Record        `json:"ratings"`
			Reviews []Record        `json:"reviews"`
			Stats   json.RawMessage `json:"stats"`
		}
		if err := json.Unmarshal(trimmed, &body); err != nil {
			return Payload{Kind: PayloadUnrecognized}, nil
		}
		records := body.Ratings
		if records == nil {
			records = body.Reviews
		}
		stats := decodeStats(body.Stats)
		if records == nil && stats == nil {
			return Payload{Kind: PayloadUnrecognized}, nil
		}
		return Payload{Kind: PayloadObject, Records: records, Stats: stats}, nil
	default:
		if !json.Valid(trimmed) {
			return Payload{}, errors.New("rating: payload is not json")
		}
		return Payload{Kind: PayloadUnrecognized}, nil
	}
}

func decodeStats(data json.RawMessage) *Stats {
	if len(data) == 0 {
		return nil
	}
	var body struct {
		Avg     *float64 `json:"avg"`
		Average *float64 `json:"average"`
		Count   int      `json:"count"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil
	}
	avg := body.Avg
	if avg == nil {
		avg = body.Average
	}
	if avg == nil {
		return nil
	}
	return &Stats{Average: *avg, Count: body.Count}
}

// Record is one raw review record. Upstream deployments disagree on
// field names and types, so every field is coerced through its known
// variants and a record that is not even an object decodes to the zero
// Record.
type Record struct {
	ID        string
	Score     float64
	Comment   string
	Author    string
	CreatedAt time.Time
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*r = Record{}
		return nil
	}
	r.ID = stringField(raw, "id", "_id")
	r.Score = scoreField(raw, "score", "rating")
	r.Comment = stringField(raw, "comment", "text")
	r.Author = authorField(raw, "user", "author")
	r.CreatedAt = timeField(raw, "createdAt", "created_at")
	return nil
}

func stringField(raw map[string]json.RawMessage, keys ...string) string {
	for _, key := range keys {
		data, ok := raw[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			return strings.TrimSpace(s)
		}
		var n float64
		if err := json.Unmarshal(data, &n); err == nil {
			return strconv.FormatFloat(n, 'f', -1, 64)
		}
		return ""
	}
	return ""
}

func scoreField(raw map[string]json.RawMessage, keys ...string) float64 {
	for _, key := range keys {
		data, ok := raw[key]
		if !ok {
			continue
		}
		var n float64
		if err := json.Unmarshal(data, &n); err == nil {
			return clampScore(n)
		}
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				return clampScore(f)
			}
		}
		return 0
	}
	return 0
}

func authorField(raw map[string]json.RawMessage, keys ...string) string {
	for _, key := range keys {
		data, ok := raw[key]
		if !ok {
			continue
		}
		var name string
		if err := json.Unmarshal(data, &name); err == nil {
			return strings.TrimSpace(name)
		}
		var obj struct {
			Name  string `json:"name"`
			Email string `json:"email"`
		}
		if err := json.Unmarshal(data, &obj); err == nil {
			if s := strings.TrimSpace(obj.Name); s != "" {
				return s
			}
			return strings.TrimSpace(obj.Email)
		}
		return ""
	}
	return ""
}

func timeField(raw map[string]json.RawMessage, keys ...string) time.Time {
	for _, key := range keys {
		data, ok := raw[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
				if t, err := time.Parse(layout, s); err == nil {
					return t.UTC()
				}
			}
			return time.Time{}
		}
		var ms int64
		if err := json.Unmarshal(data, &ms); err == nil && ms > 0 {
			return time.UnixMilli(ms).UTC()
		}
		return time.Time{}
	}
	return time.Time{}
}

func clampScore(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 5:
		return 5
	default:
		return v
	}
}
