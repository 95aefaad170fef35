//go:build !prod

package database

// GetDefaultDBPath returns the database path for development mode.
// In dev mode the database sits in the working directory.
func GetDefaultDBPath() string {
	return "oneclick.db"
}

func IsDevelopment() bool {
	return true
}
