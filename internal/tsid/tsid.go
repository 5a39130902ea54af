package tsid

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ID is a backend identifier. It decodes from either a JSON string or a bare JSON integer and
// always encodes as a string.
type ID string

func (id ID) String() string {
	return string(id)
}

func (id ID) IsZero() bool {
	return id == ""
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(id))
}

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("tsid: %w", err)
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("tsid: %w", err)
	}
	if strings.ContainsAny(n.String(), ".eE") {
		return fmt.Errorf("tsid: %s is not an integer", n)
	}
	*id = ID(n.String())
	return nil
}

// Dedupe returns ids in first-seen order without empty or repeated values.
func Dedupe(ids []ID) []ID {
	seen := make(map[ID]struct{}, len(ids))
	out := make([]ID, 0, len(ids))
	for _, id := range ids {
		if id.IsZero() {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
