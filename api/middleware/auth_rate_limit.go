package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/api/responses"
	pkgerrors "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/errors"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/logger"
)

// phoneProbeBytes caps how much of the body is buffered to find the phone.
const phoneProbeBytes = 16 << 10

// RateLimitStore counts hits in fixed windows.
type RateLimitStore interface {
	FixedWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	RateLimitKey(parts ...string) string
}

// AuthRateLimitPolicy throttles one auth surface per client IP and per phone
// number. A zero limit turns that dimension off.
type AuthRateLimitPolicy struct {
	name       string
	window     time.Duration
	ipLimit    int
	phoneLimit int
}

func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, phoneLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{name: name, window: window, ipLimit: ipLimit, phoneLimit: phoneLimit}
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.phoneLimit > 0)
}

// limitCheck is one counter a request is charged against.
type limitCheck struct {
	dimension string
	subject   string
	limit     int
}

// AuthRateLimit rejects a request with 429 once its IP or phone number used
// up the policy's window. Store failures fail closed with 503.
func AuthRateLimit(policy AuthRateLimitPolicy, store RateLimitStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			checks, err := policy.checksFor(r)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
				return
			}
			for _, check := range checks {
				key := store.RateLimitKey(policy.name, check.dimension, check.subject)
				count, resetIn, err := store.FixedWindow(ctx, key, policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiter unavailable"))
					return
				}
				if count > int64(check.limit) {
					rejectRateLimited(ctx, logg, w, policy, check, count, resetIn)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// checksFor lists the counters r is charged against. When the phone
// dimension is on it buffers the head of the body and restores r.Body.
func (p AuthRateLimitPolicy) checksFor(r *http.Request) ([]limitCheck, error) {
	var checks []limitCheck
	if ip := clientIP(r); p.ipLimit > 0 && ip != "" {
		checks = append(checks, limitCheck{dimension: "ip", subject: ip, limit: p.ipLimit})
	}
	if p.phoneLimit <= 0 || r.Body == nil {
		return checks, nil
	}

	head, err := io.ReadAll(io.LimitReader(r.Body, phoneProbeBytes))
	if err != nil {
		return nil, err
	}
	r.Body = readCloser{Reader: io.MultiReader(bytes.NewReader(head), r.Body), Closer: r.Body}

	if phone := normalizePhone(extractPhone(head)); phone != "" {
		checks = append(checks, limitCheck{dimension: "phone", subject: hashValue(phone), limit: p.phoneLimit})
	}
	return checks, nil
}

type readCloser struct {
	io.Reader
	io.Closer
}

func rejectRateLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy AuthRateLimitPolicy, check limitCheck, count int64, resetIn time.Duration) {
	retryAfter := int(math.Ceil(resetIn.Seconds()))
	if retryAfter < 1 {
		retryAfter = 1
	}
	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"policy":      policy.name,
			"dimension":   check.dimension,
			"subject":     check.subject,
			"attempts":    count,
			"limit":       check.limit,
			"retry_after": retryAfter,
		}), "auth request throttled")
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
}

// clientIP takes the first X-Forwarded-For hop, then X-Real-IP, then the
// socket peer.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func extractPhone(payload []byte) string {
	var body struct {
		Phone string `json:"phone"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	return body.Phone
}

// normalizePhone drops separators so "+250 788-123" and "+250788123" share a counter.
func normalizePhone(value string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(value))
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
