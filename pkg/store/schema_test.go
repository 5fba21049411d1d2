package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAreaKey(t *testing.T) {
	assert.Equal(t, "savestash:default:area:local", AreaKey("default", AreaLocal))
}

func TestChangesChannel(t *testing.T) {
	assert.Equal(t, "savestash:default:local:changes", ChangesChannel("default", AreaLocal))
}

func TestValidateProfile(t *testing.T) {
	assert.NoError(t, ValidateProfile("default"))
	assert.NoError(t, ValidateProfile("work-laptop_2"))

	for _, bad := range []string{"", "a:b", "with space", "glob*", "q?", "[x]"} {
		assert.Error(t, ValidateProfile(bad), "profile %q should be rejected", bad)
	}
}
