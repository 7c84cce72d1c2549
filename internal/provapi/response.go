// Package provapi holds the wire helpers shared by the ProvStore HTTP
// backend and the sandbox server.
package provapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mitchellh/mapstructure"
)

// Decode unmarshals a JSON response body into out. Fields are matched with
// mapstructure tags and decoding is weakly typed, so "12" fills an int and
// any timestamp layout dateparse understands fills a time.Time.
func Decode(body []byte, out any) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return fmt.Errorf("provapi: empty response body")
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("provapi: parse response: %w", err)
	}

	md, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       timeHook,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := md.Decode(raw); err != nil {
		return fmt.Errorf("provapi: decode response: %w", err)
	}
	return nil
}

// ExtractObjects unwraps list responses, returning the JSON array stored
// under "objects". A body that already is an array is returned as is.
func ExtractObjects(body []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []byte("[]"), nil
	}
	if trimmed[0] == '[' {
		return append([]byte(nil), trimmed...), nil
	}

	var envelope struct {
		Objects json.RawMessage `json:"objects"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("provapi: parse list envelope: %w", err)
	}
	if envelope.Objects == nil || bytes.Equal(envelope.Objects, []byte("null")) {
		return []byte("[]"), nil
	}
	return append([]byte(nil), envelope.Objects...), nil
}

// ErrInvalidJSONContent is returned by EncodeContent for a "json" body that
// does not parse.
var ErrInvalidJSONContent = errors.New("provapi: content is not valid JSON")

// EncodeContent prepares a provenance body for the "content" field of a
// write request. JSON bodies are embedded verbatim; every other format is
// sent as a string.
func EncodeContent(body []byte, format string) (json.RawMessage, error) {
	if format == "json" {
		if !json.Valid(body) {
			return nil, ErrInvalidJSONContent
		}
		return json.RawMessage(append([]byte(nil), body...)), nil
	}
	quoted, err := json.Marshal(string(body))
	if err != nil {
		return nil, err
	}
	return quoted, nil
}

// DecodeContent reverses EncodeContent: a JSON string yields its text, any
// other JSON value yields its raw bytes.
func DecodeContent(content json.RawMessage) []byte {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return []byte(s)
		}
	}
	return append([]byte(nil), trimmed...)
}

var timeType = reflect.TypeOf(time.Time{})

func timeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != timeType || from.Kind() != reflect.String {
		return data, nil
	}
	s, _ := data.(string)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return nil, fmt.Errorf("provapi: parse timestamp %q: %w", s, err)
	}
	return t, nil
}
