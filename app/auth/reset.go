package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"
)

// ResetTokenTTL is the window during which a password reset token is honored.
const ResetTokenTTL = 10 * time.Minute

const resetTokenBytes = 20

// GenerateResetToken returns the cleartext token handed to the requester once,
// the digest stored at rest, and the absolute expiry. The token is already
// high entropy, so a fast cryptographic digest is enough here.
func GenerateResetToken() (cleartext string, hash string, expiry time.Time, err error) {
	buf := make([]byte, resetTokenBytes)
	if _, err = rand.Read(buf); err != nil {
		return "", "", time.Time{}, err
	}

	cleartext = hex.EncodeToString(buf)
	return cleartext, HashResetToken(cleartext), time.Now().Add(ResetTokenTTL), nil
}

// HashResetToken computes the at-rest digest of a presented reset token.
func HashResetToken(cleartext string) string {
	sum := sha256.Sum256([]byte(cleartext))
	return hex.EncodeToString(sum[:])
}

func MatchResetToken(cleartext, storedHash string) bool {
	return subtle.ConstantTimeCompare([]byte(HashResetToken(cleartext)), []byte(storedHash)) == 1
}
