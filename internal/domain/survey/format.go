package survey

import (
	"encoding/json"
	"strings"
)

// Record formatting: translation between the storage representation and the
// canonical in-memory shape. Every helper is pure and idempotent; a value that
// is already in canonical form passes through unchanged, and absent or
// malformed stored values decode to the empty canonical value, never an error.

// formatStringSet decodes a serialized string set.
func formatStringSet(v interface{}) []string {
	switch t := v.(type) {
	case nil:
		return []string{}
	case []string:
		if t == nil {
			return []string{}
		}
		return t
	case []byte:
		return decodeStringSlice(t)
	case string:
		return decodeStringSlice([]byte(t))
	default:
		return []string{}
	}
}

func decodeStringSlice(raw []byte) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil || out == nil {
		return []string{}
	}
	return out
}

// formatFileList splits a comma-joined file column into an ordered list.
func formatFileList(v interface{}) []string {
	switch t := v.(type) {
	case nil:
		return []string{}
	case []string:
		if t == nil {
			return []string{}
		}
		return t
	case string:
		if t == "" {
			return []string{}
		}
		return strings.Split(t, ",")
	default:
		return []string{}
	}
}

// decodeInto unmarshals raw jsonb into dst, reporting whether anything
// meaningful was decoded.
func decodeInto(raw []byte, dst interface{}) bool {
	if len(raw) == 0 || string(raw) == "null" || string(raw) == "{}" {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

func formatUsage(raw []byte) *Usage {
	var u Usage
	if !decodeInto(raw, &u) {
		return nil
	}
	return &u
}

func formatLastUsage(raw []byte) *LastUsage {
	var lu LastUsage
	if !decodeInto(raw, &lu) {
		return nil
	}
	return &lu
}

func formatDealer(raw []byte) *Dealer {
	var d Dealer
	if !decodeInto(raw, &d) {
		return nil
	}
	return &d
}

func formatContact(raw []byte) *Contact {
	var c Contact
	if !decodeInto(raw, &c) {
		return nil
	}
	return &c
}

func formatPayment(raw []byte) *Payment {
	var p Payment
	if !decodeInto(raw, &p) {
		return nil
	}
	return &p
}

func encodeJSON(v interface{}) []byte {
	raw, err := json.Marshal(v)
	if err != nil {
		return []byte("null")
	}
	return raw
}

func encodeStringSet(v []string) []byte {
	if v == nil {
		v = []string{}
	}
	return encodeJSON(v)
}
