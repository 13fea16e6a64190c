package report

import (
	"bytes"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/srp-dev/consolidation-api/internal/models"
)

// NormalizeFields turns a submission's opaque fields payload into a
// well-formed SubmissionFields. The upstream backend stores the payload
// inconsistently: sometimes as a JSON object, sometimes as a JSON-encoded
// string, sometimes not at all. Whatever comes in, the result is always a
// usable value; malformed payloads log a warning and come back empty.
func NormalizeFields(raw json.RawMessage, logger *zap.Logger) models.SubmissionFields {
	if logger == nil {
		logger = zap.NewNop()
	}
	empty := models.SubmissionFields{Extra: map[string]interface{}{}}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return empty
	}

	// A leading quote means the object was double-encoded as a string.
	if trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err != nil {
			logger.Warn("fields payload is not a valid JSON string", zap.Error(err))
			return empty
		}
		trimmed = bytes.TrimSpace([]byte(inner))
		if len(trimmed) == 0 {
			return empty
		}
	}

	if trimmed[0] != '{' {
		logger.Warn("fields payload is not a JSON object",
			zap.String("prefix", previewPayload(trimmed)))
		return empty
	}

	var generic map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &generic); err != nil {
		logger.Warn("failed to parse fields payload", zap.Error(err))
		return empty
	}

	out := models.SubmissionFields{Extra: map[string]interface{}{}}
	for key, val := range generic {
		switch key {
		case "rows":
			out.Rows = decodeRows(val, logger)
		case "mps_rows":
			out.MPSRows = decodeRows(val, logger)
		default:
			var v interface{}
			if err := json.Unmarshal(val, &v); err == nil {
				out.Extra[key] = v
			}
		}
	}
	return out
}

func decodeRows(raw json.RawMessage, logger *zap.Logger) []models.Row {
	var rows []models.Row
	if err := json.Unmarshal(raw, &rows); err != nil {
		logger.Warn("failed to parse row array in fields payload", zap.Error(err))
		return nil
	}
	out := rows[:0]
	for _, r := range rows {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

func previewPayload(raw []byte) string {
	const max = 32
	if len(raw) > max {
		return string(raw[:max]) + "..."
	}
	return string(raw)
}
