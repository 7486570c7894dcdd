package domain

// Record is a server-owned log entry attributed to one user and one date.
type Record interface {
	RecordID() string
	OwnerID() string
	Day() LogDate
}

// Draft is a create payload. Owned returns a copy carrying the owner and
// date taken from client state.
type Draft[D any] interface {
	Owned(userID string, date LogDate) D
}
