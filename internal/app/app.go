// Package app holds the per-process dependency set built once in main and
// passed down explicitly. Nothing here is mutated after startup.
package app

import (
	"github.com/rs/zerolog"

	"taskpulse/internal/config"
	"taskpulse/internal/eventbus"
	"taskpulse/internal/store"
)

// Deps is everything the HTTP handlers need: the database handle, the
// event bus publisher, configuration, and the process logger.
type Deps struct {
	DB  store.DB
	Bus eventbus.Publisher
	Cfg config.Config
	Log zerolog.Logger
}
