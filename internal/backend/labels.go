package backend

import (
	"fmt"

	"github.com/google/uuid"
)

// Label keys used for savestash resources
const (
	LabelProject   = "savestash.project"
	LabelProfile   = "savestash.profile"
	LabelRunID     = "savestash.run_id"
	LabelComponent = "savestash.component"
	LabelRedisPort = "savestash.redis.port"
)

// ComponentRedis is the component label of the store container.
const ComponentRedis = "redis"

// BuildLabels creates the standard label set for a profile's resources.
// component may be empty.
func BuildLabels(profile, runID, component string) map[string]string {
	labels := map[string]string{
		LabelProject: "true",
		LabelProfile: profile,
		LabelRunID:   runID,
	}

	if component != "" {
		labels[LabelComponent] = component
	}

	return labels
}

// GenerateRunID creates a new UUID for a backend run.
// Each `savestash store up` that creates a container gets a unique run ID.
func GenerateRunID() string {
	return uuid.New().String()
}

// ContainerName returns the Redis container name for a profile
func ContainerName(profile string) string {
	return fmt.Sprintf("savestash-redis-%s", profile)
}
