package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/johnquangdev/warroom/internal/domain/entities"
	"github.com/johnquangdev/warroom/internal/domain/repositories"
)

// knowledgeRepository implements the KnowledgeRepository interface
type knowledgeRepository struct {
	db *gorm.DB
}

// NewKnowledgeRepository creates a new knowledge repository
func NewKnowledgeRepository(db *gorm.DB) repositories.KnowledgeRepository {
	return &knowledgeRepository{db: db}
}

// FindDepartmentsByIDs retrieves departments for roster snapshotting
func (r *knowledgeRepository) FindDepartmentsByIDs(ctx context.Context, ids []uuid.UUID) ([]*entities.Department, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var departments []*entities.Department
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&departments).Error

	if err != nil {
		return nil, err
	}
	return departments, nil
}

// FindAgentsByIDs retrieves consultant personas for roster snapshotting
func (r *knowledgeRepository) FindAgentsByIDs(ctx context.Context, ids []uuid.UUID) ([]*entities.Agent, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var agents []*entities.Agent
	err := r.db.WithContext(ctx).
		Where("id IN ? AND is_active = ?", ids, true).
		Find(&agents).Error

	if err != nil {
		return nil, err
	}
	return agents, nil
}

// FindAgentByID retrieves one consultant persona
func (r *knowledgeRepository) FindAgentByID(ctx context.Context, id uuid.UUID) (*entities.Agent, error) {
	var agent entities.Agent
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&agent).Error

	if err != nil {
		return nil, err
	}
	return &agent, nil
}

// FindRecentFilesByDepartment lists a department's newest files
func (r *knowledgeRepository) FindRecentFilesByDepartment(ctx context.Context, departmentID uuid.UUID, limit int) ([]*entities.KnowledgeFile, error) {
	var files []*entities.KnowledgeFile
	err := r.db.WithContext(ctx).
		Where("department_id = ?", departmentID).
		Order("created_at DESC").
		Limit(limit).
		Find(&files).Error

	if err != nil {
		return nil, err
	}
	return files, nil
}

// FindRecentFilesByAgent lists the newest files bound to a persona
func (r *knowledgeRepository) FindRecentFilesByAgent(ctx context.Context, agentID uuid.UUID, limit int) ([]*entities.KnowledgeFile, error) {
	var files []*entities.KnowledgeFile
	err := r.db.WithContext(ctx).
		Joins("JOIN agent_files ON agent_files.file_id = knowledge_files.id").
		Where("agent_files.agent_id = ?", agentID).
		Order("knowledge_files.created_at DESC").
		Limit(limit).
		Find(&files).Error

	if err != nil {
		return nil, err
	}
	return files, nil
}

// FindFilenamesByDepartment lists all filenames in a department silo
func (r *knowledgeRepository) FindFilenamesByDepartment(ctx context.Context, departmentID uuid.UUID) ([]string, error) {
	var filenames []string
	err := r.db.WithContext(ctx).
		Model(&entities.KnowledgeFile{}).
		Where("department_id = ?", departmentID).
		Pluck("filename", &filenames).Error

	if err != nil {
		return nil, err
	}
	return filenames, nil
}

// FindFilenamesByAgent lists all filenames bound to a persona
func (r *knowledgeRepository) FindFilenamesByAgent(ctx context.Context, agentID uuid.UUID) ([]string, error) {
	var filenames []string
	err := r.db.WithContext(ctx).
		Model(&entities.KnowledgeFile{}).
		Joins("JOIN agent_files ON agent_files.file_id = knowledge_files.id").
		Where("agent_files.agent_id = ?", agentID).
		Pluck("knowledge_files.filename", &filenames).Error

	if err != nil {
		return nil, err
	}
	return filenames, nil
}
