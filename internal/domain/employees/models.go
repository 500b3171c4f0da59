package employees

import "time"

type Employee struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	Email                string    `json:"email"`
	Role                 string    `json:"role"`
	Position             string    `json:"position"`
	Teams                []string  `json:"teams"`
	TotalAnnualLeave     *int      `json:"totalAnnualLeave,omitempty"`
	RemainingAnnualLeave *int      `json:"remainingAnnualLeave,omitempty"`
	MFAEnabled           bool      `json:"mfaEnabled"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// Credentials is an employee plus the secrets needed to log in.
type Credentials struct {
	Employee
	PasswordHash string
	MFASecret    string
}

type CreateInput struct {
	Name     string
	Email    string
	Password string
	Role     string
	Position string
	Teams    []string
}

// UpdateInput is a partial update; nil fields are left unchanged.
type UpdateInput struct {
	Name                 *string
	Email                *string
	Password             *string
	Role                 *string
	Position             *string
	Teams                *[]string
	TotalAnnualLeave     *int
	RemainingAnnualLeave *int
}

func (in UpdateInput) Empty() bool {
	return in.Name == nil && in.Email == nil && in.Password == nil && in.Role == nil &&
		in.Position == nil && in.Teams == nil && in.TotalAnnualLeave == nil && in.RemainingAnnualLeave == nil
}

// TouchesPrivileged reports whether the update changes fields only admins may set.
func (in UpdateInput) TouchesPrivileged() bool {
	return in.Role != nil || in.TotalAnnualLeave != nil || in.RemainingAnnualLeave != nil
}

const DefaultAnnualLeave = 6

func intPtr(v int) *int {
	return &v
}
