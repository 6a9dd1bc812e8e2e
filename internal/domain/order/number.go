package order

import (
	"crypto/rand"

	"github.com/go-faster/errors"
)

// NumberPrefix is prepended to every generated order number.
const NumberPrefix = "ORD-"

const (
	numberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	numberLength   = 10
)

// NewNumber generates a human-shareable order number: the fixed prefix plus
// ten random uppercase alphanumerics. Uniqueness is enforced by the orders
// table; callers retry on ErrNumberTaken.
func NewNumber() (string, error) {
	buf := make([]byte, numberLength)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "read random bytes")
	}
	for i, b := range buf {
		buf[i] = numberAlphabet[int(b)%len(numberAlphabet)]
	}
	return NumberPrefix + string(buf), nil
}
