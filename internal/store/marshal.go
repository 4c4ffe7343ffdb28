package store

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/roach88/treasury/internal/dao"
)

// marshalIdentities converts an identity list to JSON TEXT. A nil slice
// is stored as [] so reads never see null.
func marshalIdentities(ids []dao.Identity) (string, error) {
	if ids == nil {
		ids = []dao.Identity{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("marshal identities: %w", err)
	}
	return string(data), nil
}

func unmarshalIdentities(data string) ([]dao.Identity, error) {
	if data == "" {
		return []dao.Identity{}, nil
	}
	var ids []dao.Identity
	if err := json.Unmarshal([]byte(data), &ids); err != nil {
		return nil, fmt.Errorf("unmarshal identities: %w", err)
	}
	if ids == nil {
		ids = []dao.Identity{}
	}
	return ids, nil
}

// marshalPayload converts an event payload to canonical JSON TEXT.
func marshalPayload(payload map[string]any) (string, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := dao.MarshalCanonical(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// unmarshalPayload parses canonical JSON TEXT. Numbers decode as
// json.Number so uint64 amounts above 2^53 keep their precision.
func unmarshalPayload(data string) (map[string]any, error) {
	payload := map[string]any{}
	if data == "" || data == "{}" {
		return payload, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return payload, nil
}

// u64 and i64 map uint64 amounts onto SQLite's signed INTEGER by bit
// pattern. Equality survives the mapping; SQL ordering and arithmetic on
// values of 2^63 and above do not.
func i64(v uint64) int64 { return int64(v) }
func u64(v int64) uint64 { return uint64(v) }

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func ptrInt64(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
