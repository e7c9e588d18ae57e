package entities

import (
	"time"

	"github.com/google/uuid"
)

// Department is a knowledge silo owner. Departments participate in meetings
// through snapshotted roster entries; their files are only retrievable by
// their own delegate.
type Department struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Code        string    `gorm:"type:varchar(50);unique;not null" json:"code"`
	Description *string   `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time `gorm:"default:now()" json:"created_at"`
	UpdatedAt   time.Time `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for Department
func (Department) TableName() string {
	return "departments"
}

// Agent is a consultant persona with its own system prompt and a bound set
// of knowledge files (via AgentFile).
type Agent struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name"`
	Description  *string   `gorm:"type:text" json:"description,omitempty"`
	SystemPrompt string    `gorm:"type:text;not null" json:"system_prompt"`
	AvatarURL    *string   `gorm:"type:varchar(500)" json:"avatar_url,omitempty"`
	IsActive     bool      `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time `gorm:"default:now()" json:"created_at"`
	UpdatedAt    time.Time `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for Agent
func (Agent) TableName() string {
	return "agents"
}

// KnowledgeFile is one ingested document. The embedding column is a pgvector
// value written by the ingestion pipeline and queried with raw SQL; it is
// deliberately not mapped here.
type KnowledgeFile struct {
	ID              uuid.UUID   `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	DepartmentID    *uuid.UUID  `gorm:"type:uuid;index" json:"department_id,omitempty"`
	Department      *Department `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
	Filename        string      `gorm:"type:varchar(500);not null" json:"filename"`
	Summary         *string     `gorm:"type:text" json:"summary,omitempty"`
	MarkdownContent string      `gorm:"type:text" json:"markdown_content"`
	CreatedAt       time.Time   `gorm:"default:now()" json:"created_at"`
	UpdatedAt       time.Time   `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for KnowledgeFile
func (KnowledgeFile) TableName() string {
	return "knowledge_files"
}

// AgentFile binds a knowledge file to a consultant persona
type AgentFile struct {
	AgentID   uuid.UUID `gorm:"type:uuid;primary_key" json:"agent_id"`
	FileID    uuid.UUID `gorm:"type:uuid;primary_key" json:"file_id"`
	CreatedAt time.Time `gorm:"default:now()" json:"created_at"`
}

// TableName specifies the table name for AgentFile
func (AgentFile) TableName() string {
	return "agent_files"
}
