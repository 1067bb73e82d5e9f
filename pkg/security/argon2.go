// Package security hashes and checks account passwords.
package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/config"
)

// ErrInvalidHash signals a stored hash that is not a PHC-formatted argon2id
// string.
var ErrInvalidHash = errors.New("invalid argon2id hash")

var b64 = base64.RawStdEncoding

// argonHash is one decoded $argon2id$v=19$m=..,t=..,p=..$salt$key string.
type argonHash struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	key     []byte
}

func (h argonHash) String() string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.memory, h.time, h.threads, b64.EncodeToString(h.salt), b64.EncodeToString(h.key))
}

func parseArgonHash(encoded string) (argonHash, error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return argonHash{}, ErrInvalidHash
	}
	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil || version != argon2.Version {
		return argonHash{}, ErrInvalidHash
	}
	var h argonHash
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &h.memory, &h.time, &h.threads); err != nil {
		return argonHash{}, ErrInvalidHash
	}
	var err error
	if h.salt, err = b64.DecodeString(fields[4]); err != nil || len(h.salt) == 0 {
		return argonHash{}, ErrInvalidHash
	}
	if h.key, err = b64.DecodeString(fields[5]); err != nil || len(h.key) == 0 {
		return argonHash{}, ErrInvalidHash
	}
	if h.memory == 0 || h.time == 0 || h.threads == 0 {
		return argonHash{}, ErrInvalidHash
	}
	return h, nil
}

// costs clamps configured argon2 settings into sane bounds so a typo cannot
// make logins free or take minutes.
func costs(cfg config.PasswordConfig) (memory, time uint32, threads uint8, saltLen, keyLen uint32) {
	clamp := func(v, lo, hi int) int { return min(max(v, lo), hi) }
	return uint32(clamp(cfg.ArgonMemoryKB, 8, 512*1024)),
		uint32(clamp(cfg.ArgonTime, 1, 10)),
		uint8(clamp(cfg.ArgonParallelism, 1, 255)),
		uint32(clamp(cfg.ArgonSaltLen, 8, 64)),
		uint32(clamp(cfg.ArgonKeyLen, 16, 64))
}

// HashPassword derives an argon2id hash with a fresh random salt.
func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	memory, time, threads, saltLen, keyLen := costs(cfg)
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	h := argonHash{
		memory:  memory,
		time:    time,
		threads: threads,
		salt:    salt,
		key:     argon2.IDKey([]byte(password), salt, time, memory, threads, keyLen),
	}
	return h.String(), nil
}

// VerifyPassword recomputes the key with the parameters stored in encoded and
// compares in constant time.
func VerifyPassword(password, encoded string) (bool, error) {
	h, err := parseArgonHash(encoded)
	if err != nil {
		return false, err
	}
	key := argon2.IDKey([]byte(password), h.salt, h.time, h.memory, h.threads, uint32(len(h.key)))
	return subtle.ConstantTimeCompare(h.key, key) == 1, nil
}
