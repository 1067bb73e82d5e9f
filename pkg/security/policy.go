package security

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"unicode"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

const specialChars = `!@#$%^&*(),.?":{}|<>`

type charClass struct {
	name    string
	charset string
	match   func(rune) bool
}

// classes lists what every password must contain, in the order failures are
// reported.
var classes = []charClass{
	{name: "digit", charset: "0123456789", match: unicode.IsDigit},
	{name: "uppercase letter", charset: "ABCDEFGHIJKLMNOPQRSTUVWXYZ", match: unicode.IsUpper},
	{name: "lowercase letter", charset: "abcdefghijklmnopqrstuvwxyz", match: unicode.IsLower},
	{name: "special character", charset: specialChars, match: func(r rune) bool { return strings.ContainsRune(specialChars, r) }},
}

// CheckPasswordPolicy returns a user-facing reason when password is too
// weak, or "" when it is acceptable.
func CheckPasswordPolicy(password string) string {
	if len(password) < MinPasswordLength {
		return fmt.Sprintf("password must be at least %d characters long", MinPasswordLength)
	}
	for _, class := range classes {
		if !strings.ContainsFunc(password, class.match) {
			return "password must contain at least one " + class.name
		}
	}
	return ""
}

// GenerateTempPassword returns a random password of the given length that
// passes CheckPasswordPolicy. Admin-created accounts receive one.
func GenerateTempPassword(length int) (string, error) {
	if length < MinPasswordLength {
		return "", fmt.Errorf("length must be at least %d", MinPasswordLength)
	}

	var alphabet strings.Builder
	out := make([]byte, 0, length)
	for _, class := range classes {
		alphabet.WriteString(class.charset)
		c, err := randomByte(class.charset)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}
	for len(out) < length {
		c, err := randomByte(alphabet.String())
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}

	// Fisher-Yates so the guaranteed characters are not always first.
	for i := len(out) - 1; i > 0; i-- {
		j, err := randomIndex(i + 1)
		if err != nil {
			return "", err
		}
		out[i], out[j] = out[j], out[i]
	}
	return string(out), nil
}

func randomByte(charset string) (byte, error) {
	i, err := randomIndex(len(charset))
	if err != nil {
		return 0, err
	}
	return charset[i], nil
}

func randomIndex(n int) (int, error) {
	if n <= 0 {
		return 0, errors.New("empty charset")
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("read random: %w", err)
	}
	return int(v.Int64()), nil
}
