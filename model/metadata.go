package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"github.com/siherrmann/retriever/helper"
)

// Metadata holds arbitrary key/value pairs stored as JSONB on documents and
// chunks. The keyword scan filter matches against it with JSONB containment.
type Metadata map[string]interface{}

// Value implements driver.Valuer so metadata can be passed as a query
// parameter.
func (m Metadata) Value() (driver.Value, error) {
	return m.Marshal()
}

// Scan implements sql.Scanner for reading metadata columns.
func (m *Metadata) Scan(value interface{}) error {
	return m.Unmarshal(value)
}

// Marshal converts the metadata to JSON bytes.
func (m Metadata) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// Unmarshal fills the metadata from JSON bytes, a nil column value (which
// yields empty metadata) or another Metadata value.
func (m *Metadata) Unmarshal(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case Metadata:
		*m = v
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	default:
		return helper.NewError("byte assertion", errors.New("type assertion to []byte failed"))
	}
}
