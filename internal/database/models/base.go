package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Base model with auto-increment primary key and timestamps
type Base struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RoleSet is a set of permission tags stored as a JSON array column so the
// same representation works on PostgreSQL and SQLite.
type RoleSet []string

// Scan implements the sql.Scanner interface for reading from database
func (r *RoleSet) Scan(value interface{}) error {
	if value == nil {
		*r = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("RoleSet: expected []byte or string, got %T", value)
	}

	if len(data) == 0 {
		*r = nil
		return nil
	}

	return json.Unmarshal(data, r)
}

// Value implements the driver.Valuer interface for writing to database
func (r RoleSet) Value() (driver.Value, error) {
	if r == nil {
		r = RoleSet{}
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Contains reports whether the set holds the given role.
func (r RoleSet) Contains(role string) bool {
	for _, have := range r {
		if have == role {
			return true
		}
	}
	return false
}
