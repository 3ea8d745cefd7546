package mapper

import (
	"time"

	"doc-domains-be/internal/entity"
	"doc-domains-be/internal/model"
)

type DomainMapper struct{}

func NewDomainMapper() *DomainMapper {
	return &DomainMapper{}
}

func (m *DomainMapper) ToEntity(d *model.Domain) *entity.Domain {
	if d == nil {
		return nil
	}

	var updatedAt *time.Time
	if !d.UpdatedAt.IsZero() {
		t := d.UpdatedAt
		updatedAt = &t
	}

	return &entity.Domain{
		Id:         d.Id,
		Name:       d.Name,
		VectorSize: d.VectorSize,
		Distance:   d.Distance,
		Summary:    d.Summary,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  updatedAt,
	}
}

func (m *DomainMapper) ToModel(d *entity.Domain) *model.Domain {
	if d == nil {
		return nil
	}

	var updatedAt time.Time
	if d.UpdatedAt != nil {
		updatedAt = *d.UpdatedAt
	}

	return &model.Domain{
		Id:         d.Id,
		Name:       d.Name,
		VectorSize: d.VectorSize,
		Distance:   d.Distance,
		Summary:    d.Summary,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  updatedAt,
	}
}

func (m *DomainMapper) ToEntities(domains []*model.Domain) []*entity.Domain {
	entities := make([]*entity.Domain, len(domains))
	for i, d := range domains {
		entities[i] = m.ToEntity(d)
	}
	return entities
}
