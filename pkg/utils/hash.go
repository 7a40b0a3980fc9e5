package utils

import (
	"golang.org/x/crypto/bcrypt"
)

// HashPasscode hashes a plain passcode using bcrypt. Used by operators to produce AUTH_ADMIN_PASSCODE_HASH.
func HashPasscode(passcode string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(passcode), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasscode compares a plain passcode with a bcrypt hash.
func CheckPasscode(plain, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}
