package redis

import "strings"

const keyNamespace = "ssb"

// Keys builds namespaced Redis keys. Its zero value is ready to use and is
// embedded in Client.
type Keys struct{}

// IdempotencyKey addresses a stored response or processed-event marker.
func (Keys) IdempotencyKey(scope, id string) string {
	return buildKey("idempotency", scope, id)
}

// RateLimitKey addresses one fixed-window counter, e.g. ("login", "ip", addr).
func (Keys) RateLimitKey(parts ...string) string {
	return buildKey(append([]string{"rate_limit"}, parts...)...)
}

// LockKey addresses a distributed job lock.
func (Keys) LockKey(name string) string {
	return buildKey("lock", name)
}

// AccessSessionKey addresses the session record behind an access token.
func (Keys) AccessSessionKey(accessID string) string {
	return buildKey("session", "access", accessID)
}

// buildKey joins non-empty parts under the namespace with ':'.
func buildKey(parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}
