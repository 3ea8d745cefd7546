package model

import (
	"time"

	"github.com/google/uuid"
)

type SourceFile struct {
	Id           uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DomainId     uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_domain_filename"`
	Filename     string     `gorm:"type:varchar(512);not null;uniqueIndex:idx_domain_filename"`
	SizeBytes    int64      `gorm:"not null;default:0"`
	ContentHash  string     `gorm:"type:varchar(64)"`
	ChunkCount   int        `gorm:"not null;default:0"`
	Status       string     `gorm:"type:varchar(16);not null;default:'pending'"`
	ErrorMessage string     `gorm:"type:text"`
	IndexedAt    *time.Time `gorm:""`
	CreatedAt    time.Time  `gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime"`
}

func (SourceFile) TableName() string {
	return "source_files"
}
