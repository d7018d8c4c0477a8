package rating

import (
	"testing"
	"time"
)

func TestDecodePayloadListShape(t *testing.T) {
	payload, err := DecodePayload([]byte(`[
		{"_id": "r1", "score": 4, "comment": "tight but fine", "user": {"name": "Asha"}, "createdAt": "2026-02-01T10:00:00Z"},
		{"id": "r2", "rating": "3", "text": "ok", "user": "ravi@example.com"}
	]`))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if payload.Kind != PayloadList {
		t.Fatalf("expected list payload, got %v", payload.Kind)
	}
	if len(payload.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(payload.Records))
	}

	first := payload.Records[0]
	if first.ID != "r1" || first.Score != 4 || first.Author != "Asha" {
		t.Fatalf("unexpected first record %+v", first)
	}
	second := payload.Records[1]
	if second.Score != 3 {
		t.Fatalf("expected numeric string score to coerce, got %v", second.Score)
	}
	if second.Author != "ravi@example.com" {
		t.Fatalf("expected bare string author, got %q", second.Author)
	}
	if !second.CreatedAt.IsZero() {
		t.Fatalf("expected missing timestamp to stay zero")
	}
}

func TestDecodePayloadObjectShape(t *testing.T) {
	payload, err := DecodePayload([]byte(`{
		"ratings": [{"score": 5}],
		"stats": {"avg": 4.4, "count": 12}
	}`))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if payload.Kind != PayloadObject {
		t.Fatalf("expected object payload, got %v", payload.Kind)
	}
	if payload.Stats == nil || payload.Stats.Average != 4.4 || payload.Stats.Count != 12 {
		t.Fatalf("unexpected stats %+v", payload.Stats)
	}
	if len(payload.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(payload.Records))
	}
}

func TestDecodePayloadUnrecognizedShapes(t *testing.T) {
	for _, raw := range []string{`{}`, `{"items": []}`, `42`, `"soon"`, `null`, `true`} {
		payload, err := DecodePayload([]byte(raw))
		if err != nil {
			t.Fatalf("%s: expected no error, got %v", raw, err)
		}
		if payload.Kind != PayloadUnrecognized {
			t.Fatalf("%s: expected unrecognized payload, got %v", raw, payload.Kind)
		}
	}
}

func TestDecodePayloadRejectsNonJSON(t *testing.T) {
	if _, err := DecodePayload([]byte(`<html>`)); err == nil {
		t.Fatalf("expected error for non-json payload")
	}
	if _, err := DecodePayload(nil); err == nil {
		t.Fatalf("expected error for empty payload")
	}
}

func TestRecordCoercions(t *testing.T) {
	payload, err := DecodePayload([]byte(`[
		{"score": "fast", "user": {"email": "x@y.z"}},
		{"score": 9, "user": {}},
		{"score": -2},
		{"createdAt": 1767261600000},
		17
	]`))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	recs := payload.Records
	if len(recs) != 5 {
		t.Fatalf("expected 5 records, got %d", len(recs))
	}
	if recs[0].Score != 0 {
		t.Fatalf("expected junk score to coerce to 0, got %v", recs[0].Score)
	}
	if recs[0].Author != "x@y.z" {
		t.Fatalf("expected email fallback author, got %q", recs[0].Author)
	}
	if recs[1].Score != 5 {
		t.Fatalf("expected score above range to clamp to 5, got %v", recs[1].Score)
	}
	if recs[1].Author != "" {
		t.Fatalf("expected empty object author to stay empty, got %q", recs[1].Author)
	}
	if recs[2].Score != 0 {
		t.Fatalf("expected negative score to clamp to 0, got %v", recs[2].Score)
	}
	want := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	if !recs[3].CreatedAt.Equal(want) {
		t.Fatalf("expected millisecond timestamp %v, got %v", want, recs[3].CreatedAt)
	}
	if recs[4] != (Record{}) {
		t.Fatalf("expected non-object record to decode as zero record, got %+v", recs[4])
	}
}

func TestNormalizePrefersStats(t *testing.T) {
	payload := Payload{
		Kind:    PayloadObject,
		Records: []Record{{Score: 1}, {Score: 2}},
		Stats:   &Stats{Average: 4.6, Count: 31},
	}

	summary, reviews := Normalize(payload, 3.0)
	if summary.Average != 4.6 || summary.Count != 31 {
		t.Fatalf("expected stats to win, got %+v", summary)
	}
	if len(reviews) != 2 {
		t.Fatalf("expected records kept as reviews, got %d", len(reviews))
	}
}

func TestNormalizeComputesMean(t *testing.T) {
	payload := Payload{
		Kind:    PayloadList,
		Records: []Record{{Score: 5}, {Score: 4}, {Score: 0}},
	}

	summary, _ := Normalize(payload, 2.0)
	if summary.Average != 3 || summary.Count != 3 {
		t.Fatalf("expected mean 3 over 3 records, got %+v", summary)
	}
}

func TestNormalizeFallsBackToCachedAverage(t *testing.T) {
	summary, reviews := Normalize(Payload{Kind: PayloadUnrecognized}, 4.2)
	if summary.Average != 4.2 || summary.Count != 0 {
		t.Fatalf("expected cached fallback with zero count, got %+v", summary)
	}
	if len(reviews) != 0 {
		t.Fatalf("expected no reviews, got %d", len(reviews))
	}
}

func TestNormalizeSortsNewestFirstWithUndatedLast(t *testing.T) {
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	payload := Payload{
		Kind: PayloadList,
		Records: []Record{
			{ID: "undated-a"},
			{ID: "old", CreatedAt: older},
			{ID: "new", CreatedAt: newer},
			{ID: "undated-b"},
		},
	}

	_, reviews := Normalize(payload, 0)
	gotOrder := []string{reviews[0].ID, reviews[1].ID, reviews[2].ID, reviews[3].ID}
	wantOrder := []string{"new", "old", "undated-a", "undated-b"}
	for i := range wantOrder {
		if gotOrder[i] != wantOrder[i] {
			t.Fatalf("expected order %v, got %v", wantOrder, gotOrder)
		}
	}
}

func TestNormalizeFillsAnonymousAuthor(t *testing.T) {
	payload := Payload{Kind: PayloadList, Records: []Record{{Score: 4}}}

	_, reviews := Normalize(payload, 0)
	if reviews[0].Author != AnonymousAuthor {
		t.Fatalf("expected %q, got %q", AnonymousAuthor, reviews[0].Author)
	}
}
