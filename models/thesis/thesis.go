package thesis

import "github.com/google/uuid"

type Thesis struct {
	ID     uuid.UUID `json:"id" db:"id"`
	Title  string    `json:"title" db:"title"`
	Status int       `json:"status" db:"status"`
}
