package pipeline

import (
	randv2 "math/rand/v2"
	"strconv"
)

// NewPasscode returns a random numeric code of the given length with a
// non-zero leading digit. Collisions with previously issued codes are not
// checked; the passcode store keeps the latest issuance per code.
func NewPasscode(length int) string {
	if length < 1 {
		length = 1
	}

	low := int64(1)
	for i := 1; i < length; i++ {
		low *= 10
	}

	return strconv.FormatInt(low+randv2.Int64N(9*low), 10)
}
