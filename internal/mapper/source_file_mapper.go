package mapper

import (
	"time"

	"doc-domains-be/internal/entity"
	"doc-domains-be/internal/model"
)

type SourceFileMapper struct{}

func NewSourceFileMapper() *SourceFileMapper {
	return &SourceFileMapper{}
}

func (m *SourceFileMapper) ToEntity(f *model.SourceFile) *entity.SourceFile {
	if f == nil {
		return nil
	}

	var updatedAt *time.Time
	if !f.UpdatedAt.IsZero() {
		t := f.UpdatedAt
		updatedAt = &t
	}

	return &entity.SourceFile{
		Id:           f.Id,
		DomainId:     f.DomainId,
		Filename:     f.Filename,
		SizeBytes:    f.SizeBytes,
		ContentHash:  f.ContentHash,
		ChunkCount:   f.ChunkCount,
		Status:       f.Status,
		ErrorMessage: f.ErrorMessage,
		IndexedAt:    f.IndexedAt,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    updatedAt,
	}
}

func (m *SourceFileMapper) ToModel(f *entity.SourceFile) *model.SourceFile {
	if f == nil {
		return nil
	}

	var updatedAt time.Time
	if f.UpdatedAt != nil {
		updatedAt = *f.UpdatedAt
	}

	return &model.SourceFile{
		Id:           f.Id,
		DomainId:     f.DomainId,
		Filename:     f.Filename,
		SizeBytes:    f.SizeBytes,
		ContentHash:  f.ContentHash,
		ChunkCount:   f.ChunkCount,
		Status:       f.Status,
		ErrorMessage: f.ErrorMessage,
		IndexedAt:    f.IndexedAt,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    updatedAt,
	}
}

func (m *SourceFileMapper) ToEntities(files []*model.SourceFile) []*entity.SourceFile {
	entities := make([]*entity.SourceFile, len(files))
	for i, f := range files {
		entities[i] = m.ToEntity(f)
	}
	return entities
}
