package tsid_test

import (
	"encoding/json"
	"testing"

	"github.com/jrsteele09/studio-gateway/internal/tsid"
	"github.com/stretchr/testify/require"
)

func TestIDUnmarshal(t *testing.T) {
	var v struct {
		A tsid.ID `json:"a"`
		B tsid.ID `json:"b"`
		C tsid.ID `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"7123456789012345678","b":42,"c":null}`), &v))
	require.Equal(t, tsid.ID("7123456789012345678"), v.A)
	require.Equal(t, tsid.ID("42"), v.B)
	require.True(t, v.C.IsZero())

	var bad struct {
		A tsid.ID `json:"a"`
	}
	require.Error(t, json.Unmarshal([]byte(`{"a":1.5}`), &bad))
}

func TestIDMarshal(t *testing.T) {
	b, err := json.Marshal(struct {
		A tsid.ID `json:"a"`
		B tsid.ID `json:"b"`
	}{A: "7123456789012345678"})
	require.NoError(t, err)
	require.JSONEq(t, `{"a":"7123456789012345678","b":null}`, string(b))
}

func TestDedupe(t *testing.T) {
	require.Equal(t, []tsid.ID{"1", "2"}, tsid.Dedupe([]tsid.ID{"1", "", "2", "1"}))
	require.Empty(t, tsid.Dedupe(nil))
}
