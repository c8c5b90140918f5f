package cmd

import (
	"strings"

	"github.com/retrace-dev/retrace/pkg/persistence"
	"github.com/retrace-dev/retrace/pkg/persistence/file"
)

var supportedPersistenceProviders = []string{"file"}

// NewPersistence builds a persistence backend from a database URL. Only the
// file backend ships today; unknown schemes fall back to it so a bare path
// works.
func NewPersistence(databaseURL string) persistence.Persistence {
	switch parsePersistenceProvider(databaseURL) {
	default:
		return file.NewPersistence(databaseURL)
	}
}

func parsePersistenceProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	for _, supported := range supportedPersistenceProviders {
		if provider == supported {
			return provider
		}
	}

	return "file"
}
