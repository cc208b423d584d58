package storage

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/storage/badger"
	"github.com/ternarybob/respondeo/internal/storage/memory"
)

// NewStorageManager creates a new storage manager based on config
func NewStorageManager(logger arbor.ILogger, config *common.Config) (interfaces.StorageManager, error) {
	switch config.Storage.Type {
	case "badger", "":
		badgerConfig := config.Storage.Badger
		if badgerConfig.ResetOnStartup && config.IsProduction() {
			logger.Warn().Str("path", badgerConfig.Path).Msg("Ignoring reset_on_startup in production environment")
			badgerConfig.ResetOnStartup = false
		}
		return badger.NewManager(logger, &badgerConfig)
	case "memory":
		return memory.NewManager(logger), nil
	default:
		return nil, fmt.Errorf("storage type %q: %w", config.Storage.Type, interfaces.ErrUnsupportedBackend)
	}
}
