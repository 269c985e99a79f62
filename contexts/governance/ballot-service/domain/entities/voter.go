package entities

import "time"

// Voter holds the remaining voting credits of one participant. Records are
// created lazily on the first grant and never deleted; a voter with zero
// credits is a legitimate, existing voter.
type Voter struct {
	Identity  string
	Credits   uint64
	CreatedAt time.Time
	UpdatedAt time.Time
}
