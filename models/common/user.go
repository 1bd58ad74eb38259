package common

import "github.com/google/uuid"

// Information is the personal profile row of a user.
type Information struct {
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	FirstName string    `json:"first_name" db:"first_name"`
	LastName  string    `json:"last_name" db:"last_name"`
}

// FullName renders the name family-name first, as shown in group listings.
func (i Information) FullName() string {
	return i.LastName + " " + i.FirstName
}

type StudentInfo struct {
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	StudentCode string    `json:"student_code" db:"student_code"`
}
