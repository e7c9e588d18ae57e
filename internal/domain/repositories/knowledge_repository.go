package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/johnquangdev/warroom/internal/domain/entities"
)

// KnowledgeRepository defines read access to the silo side: departments,
// consultant personas and their knowledge files. Administration of these
// records lives outside this service.
type KnowledgeRepository interface {
	// FindDepartmentsByIDs retrieves departments for roster snapshotting
	FindDepartmentsByIDs(ctx context.Context, ids []uuid.UUID) ([]*entities.Department, error)

	// FindAgentsByIDs retrieves consultant personas for roster snapshotting
	FindAgentsByIDs(ctx context.Context, ids []uuid.UUID) ([]*entities.Agent, error)

	// FindAgentByID retrieves one consultant persona
	FindAgentByID(ctx context.Context, id uuid.UUID) (*entities.Agent, error)

	// FindRecentFilesByDepartment lists a department's newest files
	FindRecentFilesByDepartment(ctx context.Context, departmentID uuid.UUID, limit int) ([]*entities.KnowledgeFile, error)

	// FindRecentFilesByAgent lists the newest files bound to a persona
	FindRecentFilesByAgent(ctx context.Context, agentID uuid.UUID, limit int) ([]*entities.KnowledgeFile, error)

	// FindFilenamesByDepartment lists all filenames in a department silo
	FindFilenamesByDepartment(ctx context.Context, departmentID uuid.UUID) ([]string, error)

	// FindFilenamesByAgent lists all filenames bound to a persona
	FindFilenamesByAgent(ctx context.Context, agentID uuid.UUID) ([]string, error)
}
