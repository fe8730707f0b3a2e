package auth

import (
	"crypto/rand"
	"encoding/binary"
)

// NewCode generates a random six-digit one-time code in [100000, 999999].
// Used for email verification and password reset.
func NewCode() int {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand never fails on supported platforms; if it somehow does,
		// there is no safe fallback for a security code.
		panic(err)
	}
	n := binary.BigEndian.Uint64(buf[:])
	return int(n%900000) + 100000
}
