package instance

import "github.com/angelmondragon/storefront-backend/pkg/env"

// GetID returns the process instance identifier used in logs. Platform dyno
// names win over an explicit INSTANCE_ID.
func GetID() string {
	if id := env.Get("DYNO", ""); id != "" {
		return id
	}
	return env.Get("INSTANCE_ID", "local")
}
