package store

import (
	"fmt"
	"strings"
)

// Redis key pattern helpers
//
// Key pattern: savestash:{profile}:area:{area}
// Channel pattern: savestash:{profile}:{area}:changes

// AreaKey returns the Redis hash that holds every key of an area.
func AreaKey(profile, area string) string {
	return fmt.Sprintf("savestash:%s:area:%s", profile, area)
}

// ChangesChannel returns the Pub/Sub channel carrying an area's change batches.
func ChangesChannel(profile, area string) string {
	return fmt.Sprintf("savestash:%s:%s:changes", profile, area)
}

// ValidateProfile checks that a profile name can be embedded in key names.
func ValidateProfile(profile string) error {
	if profile == "" {
		return fmt.Errorf("profile name cannot be empty")
	}
	if strings.ContainsAny(profile, ": \t\n*?[]") {
		return fmt.Errorf("invalid profile name %q: must not contain ':', whitespace or glob characters", profile)
	}
	return nil
}
