package common

import (
	"time"
)

// PhotoRef points at one captured frame in blob storage. The first photo of
// a visitor is their enrollment photo.
type PhotoRef struct {
	ObjectKey string    `json:"objectKey"`
	Bucket    string    `json:"bucket"`
	CreatedAt time.Time `json:"createdAt"`
}

// VisitorRecord is the durable state for one enrolled identity. Identity is
// assigned exactly once by the face-indexing service, on first detection.
type VisitorRecord struct {
	Identity       string
	Name           string
	Email          string
	Authorized     bool
	LastNotifiedAt int64
	Photos         []PhotoRef
}

func (v *VisitorRecord) EnrollmentPhoto() *PhotoRef {
	if len(v.Photos) == 0 {
		return nil
	}

	return &v.Photos[0]
}

// PasscodeRecord maps a one-time access code to the visitor it was issued
// for. Codes are short and not globally unique over time; the mapping at
// lookup time is the source of truth.
type PasscodeRecord struct {
	Code            string
	VisitorIdentity string
	IssuedAt        time.Time
}
