package instance

import "os"

// GetID returns the process instance identifier used in log fields. It
// prefers an explicit id, then the platform dyno name, then the host name.
func GetID() string {
	for _, key := range []string{"SUNFLOWER_INSTANCE_ID", "DYNO"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
