package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// inviteAlphabet omits characters that are easy to misread on a job site
// whiteboard (0/O, 1/I/L).
const inviteAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// GenerateInviteCode generates a random invite code in the format XXXX-XXXX-XXXX
func GenerateInviteCode() (string, error) {
	var b strings.Builder
	limit := big.NewInt(int64(len(inviteAlphabet)))
	for i := 0; i < 12; i++ {
		if i > 0 && i%4 == 0 {
			b.WriteByte('-')
		}
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("failed to generate random bytes: %w", err)
		}
		b.WriteByte(inviteAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// NormalizeInviteCode uppercases and trims user-typed codes.
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
