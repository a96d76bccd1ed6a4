package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"
)

// Record is a schemaless document. Numeric JSON values are kept as
// json.Number so ids survive string normalization without float formatting.
type Record map[string]any

// DecodeRecord reads one JSON object, preserving number literals.
func DecodeRecord(r io.Reader) (Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return nil, err
	}
	if rec == nil {
		rec = Record{}
	}
	return rec, nil
}

// DecodeRecordBytes decodes a serialized record, preserving number literals.
func DecodeRecordBytes(b []byte) (Record, error) {
	var rec Record
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Stringify normalizes a field value for equality comparison, matching the
// original string-coercion semantics of the wire protocol.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(v)
	}
}

// Matches reports whether rec satisfies every filter by string equality.
// A missing field never matches.
func (rec Record) Matches(filters map[string]string) bool {
	for key, want := range filters {
		got, ok := rec[key]
		if !ok || Stringify(got) != want {
			return false
		}
	}
	return true
}

// ID returns the record id normalized to a string, or "" when absent.
func (rec Record) ID() string {
	v, ok := rec["id"]
	if !ok || v == nil {
		return ""
	}
	return Stringify(v)
}

// Clone returns a shallow copy of the record.
func (rec Record) Clone() Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}

// NewID generates an id for a record inserted without one: numeric
// epoch-milliseconds for partes and actuaciones, string otherwise.
func NewID(collection string, now time.Time) any {
	ms := now.UnixMilli()
	if collection == CollectionPartes || collection == CollectionActuaciones {
		return json.Number(strconv.FormatInt(ms, 10))
	}
	return strconv.FormatInt(ms, 10)
}

// EnsureIdentity fills in id and created_at on an insert-bound record,
// returning the normalized id.
func EnsureIdentity(collection string, rec Record, now time.Time) string {
	if rec.ID() == "" {
		rec["id"] = NewID(collection, now)
	}
	if _, ok := rec["created_at"]; !ok {
		rec["created_at"] = now.UTC().Format(time.RFC3339)
	}
	return rec.ID()
}
