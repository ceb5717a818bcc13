// basecampy | 2026
// entity.go

package project

import "time"

// Member roles, from most to least privileged.
const (
	RoleAdmin        = "admin"
	RoleProjectAdmin = "project_admin"
	RoleMember       = "member"
)

type Project struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	CreatedBy   string    `db:"created_by"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type Member struct {
	ID        string    `db:"id"`
	ProjectID string    `db:"project_id"`
	UserID    string    `db:"user_id"`
	Role      string    `db:"role"`
	CreatedAt time.Time `db:"created_at"`
}
