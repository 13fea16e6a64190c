package report

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNormalizeFieldsObjectPayload(t *testing.T) {
	raw := json.RawMessage(`{"rows":[{"trait":"Masipag","m":12,"f":14}],"mps_rows":[{"trait":"Grade 1","mps":82.5}],"remarks":"ok"}`)

	fields := NormalizeFields(raw, zap.NewNop())

	require.Len(t, fields.Rows, 1)
	assert.Equal(t, "Masipag", fields.Rows[0].Trait())
	assert.Equal(t, float64(12), fields.Rows[0]["m"])
	require.Len(t, fields.MPSRows, 1)
	assert.Equal(t, 82.5, fields.MPSRows[0]["mps"])
	assert.Equal(t, "ok", fields.Extra["remarks"])
}

func TestNormalizeFieldsDoubleEncodedString(t *testing.T) {
	inner := `{"rows":[{"trait":"Matapat","math":7}]}`
	raw, err := json.Marshal(inner)
	require.NoError(t, err)

	fields := NormalizeFields(raw, zap.NewNop())

	require.Len(t, fields.Rows, 1)
	assert.Equal(t, float64(7), fields.Rows[0]["math"])
}

func TestNormalizeFieldsAlwaysUsable(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"null", "null"},
		{"number", "42"},
		{"array", `[1,2,3]`},
		{"broken object", `{"rows":`},
		{"string of garbage", `"not json at all"`},
		{"empty string", `""`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fields := NormalizeFields(json.RawMessage(tc.raw), zap.NewNop())
			assert.Empty(t, fields.Rows)
			assert.Empty(t, fields.MPSRows)
			assert.NotNil(t, fields.Extra)
		})
	}
}

func TestNormalizeFieldsDropsNullRows(t *testing.T) {
	raw := json.RawMessage(`{"rows":[null,{"trait":"Masunurin"},null]}`)

	fields := NormalizeFields(raw, zap.NewNop())

	require.Len(t, fields.Rows, 1)
	assert.Equal(t, "Masunurin", fields.Rows[0].Trait())
}

func TestNormalizeFieldsRowsNotArray(t *testing.T) {
	raw := json.RawMessage(`{"rows":{"trait":"oops"}}`)

	fields := NormalizeFields(raw, zap.NewNop())

	assert.Empty(t, fields.Rows)
}
