package constants

// Environment variable names.
const (
	DATABASE_URL = "DATABASE_URL"
	LOG_LEVEL    = "LOG_LEVEL"
	DB_MAX_CONNS = "DB_MAX_CONNS"
)

// MaxGroupMembers is the largest number of students a thesis group may hold.
const MaxGroupMembers = 4

// MaxGroupNameLength bounds groups.name.
const MaxGroupNameLength = 100

// ThesisStatusRegistered marks a thesis that a group has claimed.
const ThesisStatusRegistered = 2
