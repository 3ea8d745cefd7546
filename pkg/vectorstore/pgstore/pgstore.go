package pgstore

import (
	"context"
	"errors"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"doc-domains-be/internal/apperrors"
	"doc-domains-be/pkg/vectorstore"
)

// Store keeps collections and points in Postgres with the pgvector
// extension. It serves deployments that already run Postgres for the
// manifest and prefer one database over a separate Qdrant.
type Store struct {
	db         *gorm.DB
	vectorSize int
}

type collectionModel struct {
	Name       string    `gorm:"primaryKey;size:255"`
	VectorSize int       `gorm:"not null"`
	Distance   string    `gorm:"size:16;not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (collectionModel) TableName() string {
	return "vector_collections"
}

type pointModel struct {
	Id         string          `gorm:"type:uuid;primaryKey"`
	Collection string          `gorm:"size:255;not null;index"`
	Embedding  pgvector.Vector `gorm:"type:vector(1024)"`
	Domain     string          `gorm:"size:255;not null"`
	File       string          `gorm:"size:512;not null;index"`
	ChunkIndex int             `gorm:"not null"`
	Text       string          `gorm:"type:text"`
	StartRune  int             `gorm:"not null"`
	EndRune    int             `gorm:"not null"`
	CreatedAt  time.Time       `gorm:"autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime"`
}

func (pointModel) TableName() string {
	return "chunk_points"
}

var _ vectorstore.Store = (*Store)(nil)

// NewStore wires the store onto an existing gorm handle. vectorSize is the
// dimension of the embedding column; collections created with a different
// size are rejected.
func NewStore(db *gorm.DB, vectorSize int) *Store {
	return &Store{db: db, vectorSize: vectorSize}
}

// Migrate ensures the pgvector extension and both tables exist.
func (s *Store) Migrate() error {
	if err := s.db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return apperrors.VectorStoreUnavailable(err, "enable pgvector extension")
	}
	return s.db.AutoMigrate(&collectionModel{}, &pointModel{})
}

func (s *Store) CreateCollection(ctx context.Context, name string, params vectorstore.CollectionParams) error {
	if params.VectorSize <= 0 {
		return apperrors.ConfigurationError("vector size must be positive, got %d", params.VectorSize)
	}
	if params.VectorSize != s.vectorSize {
		return apperrors.ConfigurationError(
			"collection %q wants dimension %d, store column is vector(%d)",
			name, params.VectorSize, s.vectorSize,
		)
	}
	m := collectionModel{
		Name:       name,
		VectorSize: params.VectorSize,
		Distance:   string(params.Distance),
	}
	err := s.db.WithContext(ctx).Create(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.AlreadyExists("collection %q already exists", name)
		}
		return apperrors.VectorStoreUnavailable(err, "create collection %q", name)
	}
	return nil
}

func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("name = ?", name).Delete(&collectionModel{})
		if res.Error != nil {
			return apperrors.VectorStoreUnavailable(res.Error, "delete collection %q", name)
		}
		if res.RowsAffected == 0 {
			return apperrors.NotFound("collection %q not found", name)
		}
		if err := tx.Where("collection = ?", name).Delete(&pointModel{}).Error; err != nil {
			return apperrors.VectorStoreUnavailable(err, "delete points of collection %q", name)
		}
		return nil
	})
}

func (s *Store) CollectionExists(ctx context.Context, name string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&collectionModel{}).Where("name = ?", name).Count(&count).Error
	if err != nil {
		return false, apperrors.VectorStoreUnavailable(err, "check collection %q", name)
	}
	return count > 0, nil
}

func (s *Store) UpsertPoints(ctx context.Context, name string, points []vectorstore.Point) error {
	if len(points) == 0 {
		return nil
	}
	if _, err := s.collection(ctx, name); err != nil {
		return err
	}

	models := make([]*pointModel, len(points))
	for i, p := range points {
		models[i] = &pointModel{
			Id:         p.ID,
			Collection: name,
			Embedding:  pgvector.NewVector(p.Vector),
			Domain:     p.Payload.Domain,
			File:       p.Payload.File,
			ChunkIndex: p.Payload.ChunkIndex,
			Text:       p.Payload.Text,
			StartRune:  p.Payload.Start,
			EndRune:    p.Payload.End,
		}
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(models).Error
	if err != nil {
		return apperrors.VectorStoreUnavailable(err, "upsert %d points into %q", len(points), name)
	}
	return nil
}

func (s *Store) DeletePointsByFilter(ctx context.Context, name string, filter vectorstore.Filter) error {
	if _, err := s.collection(ctx, name); err != nil {
		return err
	}
	query := s.db.WithContext(ctx).Where("collection = ?", name)
	query, err := applyFilter(query, filter)
	if err != nil {
		return err
	}
	if err := query.Delete(&pointModel{}).Error; err != nil {
		return apperrors.VectorStoreUnavailable(err, "delete points from %q", name)
	}
	return nil
}

func (s *Store) SearchPoints(ctx context.Context, name string, vector []float32, limit int, filter *vectorstore.Filter) ([]vectorstore.ScoredPoint, error) {
	if limit <= 0 {
		limit = 5
	}
	col, err := s.collection(ctx, name)
	if err != nil {
		return nil, err
	}

	// pgvector returns distances; each metric is rewritten into a
	// higher-is-better score so ordering matches the other backends.
	var scoreExpr string
	switch vectorstore.Distance(col.Distance) {
	case vectorstore.DistanceDot:
		scoreExpr = "-(embedding <#> ?)"
	case vectorstore.DistanceEuclid:
		scoreExpr = "-(embedding <-> ?)"
	default:
		scoreExpr = "1 - (embedding <=> ?)"
	}

	type row struct {
		pointModel
		Score float64
	}
	var rows []row

	queryVector := pgvector.NewVector(vector)
	query := s.db.WithContext(ctx).
		Table("chunk_points").
		Select("chunk_points.*, "+scoreExpr+" AS score", queryVector).
		Where("collection = ?", name)
	if filter != nil {
		query, err = applyFilter(query, *filter)
		if err != nil {
			return nil, err
		}
	}
	err = query.Order("score DESC").Limit(limit).Scan(&rows).Error
	if err != nil {
		return nil, apperrors.VectorStoreUnavailable(err, "search collection %q", name)
	}

	results := make([]vectorstore.ScoredPoint, 0, len(rows))
	for _, r := range rows {
		results = append(results, vectorstore.ScoredPoint{
			ID:    r.Id,
			Score: r.Score,
			Payload: vectorstore.Payload{
				Domain:     r.Domain,
				File:       r.File,
				ChunkIndex: r.ChunkIndex,
				Text:       r.Text,
				Start:      r.StartRune,
				End:        r.EndRune,
			},
		})
	}
	return results, nil
}

func (s *Store) GetCollectionInfo(ctx context.Context, name string) (*vectorstore.CollectionInfo, error) {
	if _, err := s.collection(ctx, name); err != nil {
		return nil, err
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&pointModel{}).Where("collection = ?", name).Count(&count).Error
	if err != nil {
		return nil, apperrors.VectorStoreUnavailable(err, "count points of %q", name)
	}
	return &vectorstore.CollectionInfo{
		PointsCount:         count,
		IndexedVectorsCount: count,
		Status:              "green",
	}, nil
}

func (s *Store) collection(ctx context.Context, name string) (*collectionModel, error) {
	var m collectionModel
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("collection %q not found", name)
		}
		return nil, apperrors.VectorStoreUnavailable(err, "load collection %q", name)
	}
	return &m, nil
}

func applyFilter(query *gorm.DB, filter vectorstore.Filter) (*gorm.DB, error) {
	for _, c := range filter.Must {
		switch c.Key {
		case "domain":
			query = query.Where("domain = ?", c.Value)
		case "file":
			query = query.Where("file = ?", c.Value)
		default:
			return nil, apperrors.ConfigurationError("unsupported filter key %q", c.Key)
		}
	}
	return query, nil
}
