package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringSlice is a thin wrapper around []string that implements
// sql.Scanner and driver.Valuer so it works transparently with jsonb/text columns.
type StringSlice []string

// Scan implements sql.Scanner
func (s *StringSlice) Scan(src interface{}) error {
	if s == nil {
		return fmt.Errorf("dbtypes: Scan on nil *StringSlice")
	}
	if src == nil {
		*s = []string{}
		return nil
	}
	var out []string
	if err := scanJSON(src, &out); err != nil {
		return fmt.Errorf("dbtypes: StringSlice: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	*s = out
	return nil
}

// Value implements driver.Valuer
func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// JSONList stores a slice of any JSON-encodable element in a jsonb column.
type JSONList[T any] []T

// Scan implements sql.Scanner
func (l *JSONList[T]) Scan(src interface{}) error {
	if l == nil {
		return fmt.Errorf("dbtypes: Scan on nil *JSONList")
	}
	if src == nil {
		*l = JSONList[T]{}
		return nil
	}
	var out []T
	if err := scanJSON(src, &out); err != nil {
		return fmt.Errorf("dbtypes: JSONList: %w", err)
	}
	*l = out
	return nil
}

// Value implements driver.Valuer
func (l JSONList[T]) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]T(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func scanJSON(src interface{}, dst any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("cannot scan type %T", src)
	}
}
