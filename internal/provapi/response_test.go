package provapi

import (
	"errors"
	"testing"
	"time"
)

type meta struct {
	ID           int64     `mapstructure:"id"`
	DocumentName string    `mapstructure:"document_name"`
	Public       bool      `mapstructure:"public"`
	CreatedAt    time.Time `mapstructure:"created_at"`
	Views        int       `mapstructure:"views_count"`
}

func TestDecodeLooseTypes(t *testing.T) {
	body := []byte(`{"id":"148","document_name":"ex:doc","public":"true","created_at":"2014-05-09T15:23:11Z","views_count":3,"extra":1}`)

	var got meta
	if err := Decode(body, &got); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.ID != 148 || got.DocumentName != "ex:doc" || !got.Public || got.Views != 3 {
		t.Fatalf("unexpected decode result: %#v", got)
	}
	want := time.Date(2014, 5, 9, 15, 23, 11, 0, time.UTC)
	if !got.CreatedAt.Equal(want) {
		t.Fatalf("CreatedAt mismatch: expected %v, got %v", want, got.CreatedAt)
	}
}

func TestDecodeRejectsBadTimestamp(t *testing.T) {
	var got meta
	if err := Decode([]byte(`{"created_at":"not a date"}`), &got); err == nil {
		t.Fatalf("expected error for unparsable timestamp")
	}
}

func TestDecodeEmptyBody(t *testing.T) {
	var got meta
	if err := Decode([]byte("  "), &got); err == nil {
		t.Fatalf("expected error for empty body")
	}
}

func TestExtractObjects(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{name: "envelope", body: `{"meta":{"total_count":1},"objects":[{"id":1}]}`, expected: `[{"id":1}]`},
		{name: "bare array", body: `[{"id":2}]`, expected: `[{"id":2}]`},
		{name: "missing objects", body: `{"meta":{}}`, expected: `[]`},
		{name: "null objects", body: `{"objects":null}`, expected: `[]`},
		{name: "empty body", body: ``, expected: `[]`},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractObjects([]byte(tc.body))
			if err != nil {
				t.Fatalf("ExtractObjects returned error: %v", err)
			}
			if string(got) != tc.expected {
				t.Fatalf("ExtractObjects mismatch: expected %q, got %q", tc.expected, string(got))
			}
		})
	}
}

func TestContentRoundTrip(t *testing.T) {
	jsonBody := []byte(`{"entity":{"ex:entity-1":{}}}`)
	encoded, err := EncodeContent(jsonBody, "json")
	if err != nil {
		t.Fatalf("EncodeContent returned error: %v", err)
	}
	if string(encoded) != string(jsonBody) {
		t.Fatalf("json content should be embedded verbatim, got %s", encoded)
	}
	if got := string(DecodeContent(encoded)); got != string(jsonBody) {
		t.Fatalf("json content round trip mismatch: %s", got)
	}

	provn := []byte("document\n  entity(ex:entity-1)\nendDocument")
	encoded, err = EncodeContent(provn, "provn")
	if err != nil {
		t.Fatalf("EncodeContent returned error: %v", err)
	}
	if encoded[0] != '"' {
		t.Fatalf("non-json content should be a JSON string, got %s", encoded)
	}
	if got := string(DecodeContent(encoded)); got != string(provn) {
		t.Fatalf("provn content round trip mismatch: %q", got)
	}
}

func TestEncodeContentRejectsInvalidJSON(t *testing.T) {
	_, err := EncodeContent([]byte("not json"), "json")
	if !errors.Is(err, ErrInvalidJSONContent) {
		t.Fatalf("expected ErrInvalidJSONContent, got %v", err)
	}

	encoded, err := EncodeContent([]byte("not json"), "provn")
	if err != nil {
		t.Fatalf("non-json formats are sent as text, got error: %v", err)
	}
	if string(encoded) != `"not json"` {
		t.Fatalf("unexpected encoding %s", encoded)
	}
}
