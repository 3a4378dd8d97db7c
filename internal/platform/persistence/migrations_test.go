package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Applying migrations for real needs a running database; only the argument
// validation is covered here.
func TestRunMigrations_InputValidation(t *testing.T) {
	t.Run("missing migrations path", func(t *testing.T) {
		err := RunMigrations("postgres://test", "")
		assert.EqualError(t, err, "migrations path is required")
	})

	t.Run("missing database URL", func(t *testing.T) {
		err := RunMigrations("", "migrations/postgres")
		assert.EqualError(t, err, "database URL is required")
	})
}
