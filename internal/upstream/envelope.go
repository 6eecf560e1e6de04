package upstream

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedResponse is returned when a list body has no recognizable rows.
var ErrMalformedResponse = errors.New("malformed upstream response")

// listKeys are the names backends have used for the row array, in lookup order.
var listKeys = []string{"items", "rows", "farmers", "porters", "cows", "events", "results"}

var totalKeys = []string{"total_count", "totalCount", "total", "count"}

// decodeEnvelope normalizes the list shapes backends answer with: a bare
// array, an object holding the array under one of listKeys, or either of
// those nested under "data". total is -1 when the body carries no count.
func decodeEnvelope(body []byte) (rows json.RawMessage, total int, err error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, 0, fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}
	if body[0] == '[' {
		return body, -1, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	total = -1
	for _, k := range totalKeys {
		raw, ok := obj[k]
		if !ok {
			continue
		}
		var n int
		if err := json.Unmarshal(raw, &n); err == nil {
			total = n
			break
		}
	}

	for _, k := range listKeys {
		raw, ok := obj[k]
		if !ok || isNull(raw) {
			continue
		}
		return raw, total, nil
	}

	if data, ok := obj["data"]; ok && !isNull(data) {
		rows, nested, err := decodeEnvelope(data)
		if err != nil {
			return nil, 0, err
		}
		if total < 0 {
			total = nested
		}
		return rows, total, nil
	}

	return nil, 0, fmt.Errorf("%w: no list field in object", ErrMalformedResponse)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// decodeList decodes a normalized list into T. A missing total falls back to
// the row count.
func decodeList[T any](body []byte) ([]T, int, error) {
	raw, total, err := decodeEnvelope(body)
	if err != nil {
		return nil, 0, err
	}
	var rows []T
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if total < 0 {
		total = len(rows)
	}
	return rows, total, nil
}
