// Package qrtoken generates and verifies check-in tokens. Everything here
// is pure computation; only the sha256 hash of a token is ever persisted,
// so a storage compromise does not leak scannable codes.
package qrtoken

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"time"
)

const (
	// ExpiryLead kills the token before the session starts, forcing
	// regeneration if arrival slips past the cutoff.
	ExpiryLead = 30 * time.Minute
	// IssueWindow is how far before the booking a token may be issued.
	IssueWindow = 24 * time.Hour

	tokenBytes = 16 // 128 bits of entropy
)

type Token struct {
	Value     string
	Hash      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Generate produces a URL-safe random token bound to one booking start
// time, with expiresAt = bookingDate - ExpiryLead.
func Generate(bookingDate, now time.Time) (Token, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return Token{}, err
	}
	value := base64.RawURLEncoding.EncodeToString(buf)
	return Token{
		Value:     value,
		Hash:      Hash(value),
		IssuedAt:  now,
		ExpiresAt: bookingDate.Add(-ExpiryLead),
	}, nil
}

// Hash maps a presented token to the form stored on the booking.
func Hash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func IsExpired(expiresAt, now time.Time) bool {
	return now.After(expiresAt)
}

// CanIssue reports whether now falls inside [bookingDate-IssueWindow, bookingDate).
func CanIssue(bookingDate, now time.Time) bool {
	return !now.Before(IssueOpensAt(bookingDate)) && now.Before(bookingDate)
}

func IssueOpensAt(bookingDate time.Time) time.Time {
	return bookingDate.Add(-IssueWindow)
}
