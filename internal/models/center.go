package models

import (
	"database/sql/driver"
	"encoding/json"
)

// Province values recognised by the provincial routing rules. Company
// placements may additionally declare ProvinceAbroad.
const (
	ProvinceBadajoz = "Badajoz"
	ProvinceCaceres = "Cáceres"
	ProvinceAbroad  = "Extranjero"
)

// Center is a read-only reference record for an educational center.
type Center struct {
	Code         string     `db:"code" json:"code"`
	Name         string     `db:"name" json:"name"`
	Locality     string     `db:"locality" json:"locality"`
	Province     string     `db:"province" json:"province"`
	DirectorName string     `db:"director_name" json:"directorName,omitempty"`
	Agreements   StringList `db:"agreements" json:"agreements,omitempty"`
}

// StringList stores a list of plain strings as JSONB.
type StringList []string

// Contains reports membership.
func (l StringList) Contains(value string) bool {
	for _, item := range l {
		if item == value {
			return true
		}
	}
	return false
}

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src interface{}) error {
	return scanJSON(src, l, "agreements")
}
