package models

// Student is a read-only reference record for an enrolled student.
type Student struct {
	DNI        string `db:"dni" json:"dni"`
	FirstName  string `db:"first_name" json:"firstName"`
	LastName   string `db:"last_name" json:"lastName"`
	CenterCode string `db:"center_code" json:"centerCode"`
	Course     string `db:"course" json:"course"`
	Group      string `db:"class_group" json:"group"`
	BirthDate  string `db:"birth_date" json:"birthDate,omitempty"`
}
