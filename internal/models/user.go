package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleDirector        UserRole = "DIRECTOR"
	RoleInspector       UserRole = "INSPECTOR"
	RoleDelegate        UserRole = "DELEGATE"
	RoleDirectorGeneral UserRole = "DIRECTOR_GENERAL"
	RoleSuperuser       UserRole = "SUPERUSER"
)

// User represents an actor profile stored in the users table. Profiles are
// seeded reference data: the login flow selects one and checks a shared
// access code, simulating the upstream identity provider.
type User struct {
	ID             string     `db:"id" json:"id"`
	FullName       string     `db:"full_name" json:"fullName"`
	Role           UserRole   `db:"role" json:"role"`
	Province       string     `db:"province" json:"province,omitempty"`
	CenterCode     string     `db:"center_code" json:"centerCode,omitempty"`
	AccessCodeHash string     `db:"access_code_hash" json:"-"`
	Active         bool       `db:"active" json:"active"`
	LastLogin      *time.Time `db:"last_login" json:"lastLogin,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
}

// Actor is the trusted session context every workflow call runs under.
type Actor struct {
	Name       string   `json:"name"`
	Role       UserRole `json:"role"`
	Province   string   `json:"province,omitempty"`
	CenterCode string   `json:"centerCode,omitempty"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
