package memory

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondeo/internal/interfaces"
)

// Manager implements the StorageManager interface with in-process maps.
// Used by tests and ephemeral deployments; nothing survives a restart.
type Manager struct {
	vector   interfaces.VectorStorage
	document interfaces.DocumentStorage
	logger   arbor.ILogger
}

// NewManager creates a new in-memory storage manager
func NewManager(logger arbor.ILogger) interfaces.StorageManager {
	manager := &Manager{
		vector:   NewVectorStorage(logger),
		document: NewDocumentStorage(logger),
		logger:   logger,
	}

	logger.Info().Msg("In-memory storage manager initialized")

	return manager
}

// VectorStorage returns the embedded chunk storage interface
func (m *Manager) VectorStorage() interfaces.VectorStorage {
	return m.vector
}

// DocumentStorage returns the document registry storage interface
func (m *Manager) DocumentStorage() interfaces.DocumentStorage {
	return m.document
}

// Backend returns the storage backend name
func (m *Manager) Backend() string {
	return "memory"
}

// Close releases nothing; in-memory state is owned by the process.
func (m *Manager) Close() error {
	return nil
}
