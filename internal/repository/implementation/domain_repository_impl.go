package implementation

import (
	"context"
	"errors"

	"doc-domains-be/internal/entity"
	"doc-domains-be/internal/mapper"
	"doc-domains-be/internal/model"
	"doc-domains-be/internal/repository/contract"
	"doc-domains-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DomainRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DomainMapper
}

func NewDomainRepository(db *gorm.DB) contract.DomainRepository {
	return &DomainRepositoryImpl{
		db:     db,
		mapper: mapper.NewDomainMapper(),
	}
}

func (r *DomainRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *DomainRepositoryImpl) Create(ctx context.Context, domain *entity.Domain) error {
	m := r.mapper.ToModel(domain)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*domain = *r.mapper.ToEntity(m)
	return nil
}

func (r *DomainRepositoryImpl) Update(ctx context.Context, domain *entity.Domain) error {
	m := r.mapper.ToModel(domain)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*domain = *r.mapper.ToEntity(m)
	return nil
}

func (r *DomainRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Domain{}, id).Error
}

func (r *DomainRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Domain, error) {
	var m model.Domain
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *DomainRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Domain, error) {
	var models []*model.Domain
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *DomainRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.Domain{}).Count(&count).Error
	return count, err
}
