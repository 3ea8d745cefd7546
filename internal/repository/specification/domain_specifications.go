package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ByName filters domains by their normalized name.
type ByName struct {
	Name string
}

func (s ByName) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("name = ?", s.Name)
}

// ByDomainId scopes source files to one domain.
type ByDomainId struct {
	DomainId uuid.UUID
}

func (s ByDomainId) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("domain_id = ?", s.DomainId)
}

// ByFilename filters source files by name.
type ByFilename struct {
	Filename string
}

func (s ByFilename) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("filename = ?", s.Filename)
}

// ByStatus filters source files by manifest status.
type ByStatus struct {
	Status string
}

func (s ByStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", s.Status)
}
