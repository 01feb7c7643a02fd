package registry

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// ID is a record identifier. The API emits numeric ids for some resources
// and string codes for others; both decode to their string form.
type ID string

// UnmarshalJSON accepts JSON numbers, strings and null.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// String returns the identifier text.
func (id ID) String() string { return string(id) }

// Int64 parses numeric identifiers; ok is false for codes.
func (id ID) Int64() (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	return n, err == nil
}

// Record is one row of any registry resource. Numbers are kept as
// json.Number so ids and counts render exactly as the API sent them.
type Record map[string]any

// UnmarshalJSON decodes an object, preserving numbers.
func (r *Record) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return err
	}
	*r = m
	return nil
}

// ID returns the record identifier.
func (r Record) ID() string {
	return r.Text("id")
}

// Text renders field key for display; missing and null fields are empty.
func (r Record) Text(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(raw)
	}
}

// Number returns field key as a float when it is numeric.
func (r Record) Number(key string) (float64, bool) {
	switch v := r[key].(type) {
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}

// namedRecord is the minimal projection used for dropdown options.
type namedRecord struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}
