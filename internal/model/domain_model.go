package model

import (
	"time"

	"github.com/google/uuid"
)

type Domain struct {
	Id         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name       string    `gorm:"type:varchar(255);not null;uniqueIndex"`
	VectorSize int       `gorm:"not null"`
	Distance   string    `gorm:"type:varchar(16);not null"`
	Summary    string    `gorm:"type:text"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

func (Domain) TableName() string {
	return "domains"
}
