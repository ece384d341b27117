package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

//
// JSONB helpers
//

// SteelRules is an ordered rule list stored in a Postgres jsonb column.
type SteelRules []SteelRule

func (r SteelRules) Value() (driver.Value, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	b, err := json.Marshal([]SteelRule(r))
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *SteelRules) Scan(value any) error {
	b, err := jsonbBytes(value)
	if err != nil {
		return fmt.Errorf("SteelRules: %w", err)
	}
	if len(b) == 0 {
		*r = SteelRules{}
		return nil
	}
	return json.Unmarshal(b, (*[]SteelRule)(r))
}

// EncryptedKeys maps a provider to its encrypted API key, stored as jsonb.
type EncryptedKeys map[ProviderType]string

func (k EncryptedKeys) Value() (driver.Value, error) {
	if k == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(map[ProviderType]string(k))
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (k *EncryptedKeys) Scan(value any) error {
	b, err := jsonbBytes(value)
	if err != nil {
		return fmt.Errorf("EncryptedKeys: %w", err)
	}
	if len(b) == 0 {
		*k = EncryptedKeys{}
		return nil
	}
	return json.Unmarshal(b, (*map[ProviderType]string)(k))
}

func jsonbBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("expected []byte, got %T", value)
	}
}
