package util

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// ConfirmationCode returns a short upper-hex code handed to the visitor
// in the confirmation message (6 hex chars, 3 random bytes).
func ConfirmationCode() string {
	var b [3]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}

	return strings.ToUpper(hex.EncodeToString(b[:]))
}
