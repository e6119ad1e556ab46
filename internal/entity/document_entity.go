package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// DocDocument is one ingested guide/policy document.
type DocDocument struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	FileName  string
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (DocDocument) TableName() string {
	return "doc_documents"
}

// DocChunk is one embedded passage of a document.
type DocChunk struct {
	Id         uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DocumentId uuid.UUID       `gorm:"type:uuid;not null;index"`
	Section    string
	Page       int
	Text       string          `gorm:"type:text"`
	Embedding  pgvector.Vector `gorm:"type:vector(768)"`
	CreatedAt  time.Time       `gorm:"autoCreateTime"`
}

func (DocChunk) TableName() string {
	return "doc_chunks"
}
