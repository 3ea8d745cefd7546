package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-domains-be/internal/apperrors"
	"doc-domains-be/internal/dto"
	repomemory "doc-domains-be/internal/repository/memory"
	"doc-domains-be/pkg/filestorage"
	"doc-domains-be/pkg/vectorstore"
	"doc-domains-be/pkg/vectorstore/memory"
)

type testLogger struct{}

func (testLogger) Debug(string, string, map[string]interface{}) {}
func (testLogger) Info(string, string, map[string]interface{})  {}
func (testLogger) Warn(string, string, map[string]interface{})  {}
func (testLogger) Error(string, string, map[string]interface{}) {}
func (testLogger) Sync() error                                  { return nil }

func newRegistry(store vectorstore.Store) (IRegistryService, *repomemory.Factory) {
	factory := repomemory.NewFactory()
	reg := NewRegistryService(factory, store, nil, nil, testLogger{}, 4, vectorstore.DistanceCosine)
	return reg, factory
}

func TestCreateDomainNormalizesName(t *testing.T) {
	store := memory.NewStore()
	reg, _ := newRegistry(store)

	resp, err := reg.CreateDomain(context.Background(), &dto.CreateDomainRequest{Name: "My Project-Docs"})
	require.NoError(t, err)
	assert.Equal(t, "my_project_docs", resp.Name)

	exists, err := store.CollectionExists(context.Background(), "my_project_docs")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCreateDomainRejectsEmptyAndInvalidNames(t *testing.T) {
	reg, _ := newRegistry(memory.NewStore())

	_, err := reg.CreateDomain(context.Background(), &dto.CreateDomainRequest{Name: "   "})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConfiguration))

	_, err = reg.CreateDomain(context.Background(), &dto.CreateDomainRequest{Name: "bad/name"})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConfiguration))
}

func TestCreateDomainNormalizedCollision(t *testing.T) {
	reg, _ := newRegistry(memory.NewStore())
	ctx := context.Background()

	_, err := reg.CreateDomain(ctx, &dto.CreateDomainRequest{Name: "release notes"})
	require.NoError(t, err)

	_, err = reg.CreateDomain(ctx, &dto.CreateDomainRequest{Name: "Release-Notes"})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindAlreadyExists))
}

func TestDeleteDomainUnknownIsNotFound(t *testing.T) {
	reg, _ := newRegistry(memory.NewStore())

	err := reg.DeleteDomain(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestDeleteDomainRemovesCollectionAndManifest(t *testing.T) {
	store := memory.NewStore()
	reg, _ := newRegistry(store)
	ctx := context.Background()

	_, err := reg.CreateDomain(ctx, &dto.CreateDomainRequest{Name: "docs"})
	require.NoError(t, err)
	require.NoError(t, reg.DeleteDomain(ctx, "docs"))

	exists, err := store.CollectionExists(ctx, "docs")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = reg.GetDomain(ctx, "docs")
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestDeleteDomainRemovesStoredBytes(t *testing.T) {
	uploads := t.TempDir()
	files, err := filestorage.NewStorage(uploads)
	require.NoError(t, err)

	factory := repomemory.NewFactory()
	reg := NewRegistryService(factory, memory.NewStore(), files, nil, testLogger{}, 4, vectorstore.DistanceCosine)
	ctx := context.Background()

	_, err = reg.CreateDomain(ctx, &dto.CreateDomainRequest{Name: "docs"})
	require.NoError(t, err)
	_, err = files.Save("docs", "a.txt", strings.NewReader("kept on disk"))
	require.NoError(t, err)

	require.NoError(t, reg.DeleteDomain(ctx, "docs"))

	_, err = os.Stat(filepath.Join(uploads, "docs"))
	assert.True(t, os.IsNotExist(err))
}

func TestGetDomainInfoPassesThroughCollectionCounts(t *testing.T) {
	store := memory.NewStore()
	reg, _ := newRegistry(store)
	ctx := context.Background()

	_, err := reg.CreateDomain(ctx, &dto.CreateDomainRequest{Name: "docs", VectorSize: 3})
	require.NoError(t, err)

	require.NoError(t, store.UpsertPoints(ctx, "docs", []vectorstore.Point{
		{ID: "00000000-0000-0000-0000-000000000001", Vector: []float32{1, 0, 0}, Payload: vectorstore.Payload{File: "a.txt"}},
		{ID: "00000000-0000-0000-0000-000000000002", Vector: []float32{0, 1, 0}, Payload: vectorstore.Payload{File: "a.txt"}},
	}))

	info, err := reg.GetDomainInfo(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, int64(2), info.PointsCount)
	assert.Equal(t, "green", info.CollectionStatus)
}

func TestRecordAndListFiles(t *testing.T) {
	reg, _ := newRegistry(memory.NewStore())
	ctx := context.Background()

	_, err := reg.CreateDomain(ctx, &dto.CreateDomainRequest{Name: "docs"})
	require.NoError(t, err)
	domain, err := reg.GetDomain(ctx, "docs")
	require.NoError(t, err)

	require.NoError(t, reg.RecordFileIndexed(ctx, domain, "a.txt", 120, "9f86d081", 3))
	require.NoError(t, reg.RecordFileError(ctx, domain, "b.txt", 50, "corrupt"))

	files, err := reg.ListFiles(ctx, "docs")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.txt", files[0].Filename)
	assert.Equal(t, 3, files[0].ChunkCount)
	assert.Equal(t, "9f86d081", files[0].ContentHash)
	assert.Equal(t, "indexed", files[0].Status)
	assert.Equal(t, "error", files[1].Status)
	assert.Equal(t, "corrupt", files[1].Error)

	// Re-recording the same file updates in place, no duplicate rows.
	require.NoError(t, reg.RecordFileIndexed(ctx, domain, "b.txt", 50, "60303ae2", 2))
	files, err = reg.ListFiles(ctx, "docs")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "indexed", files[1].Status)
}

type deleteFailingStore struct {
	vectorstore.Store
}

func (s *deleteFailingStore) DeletePointsByFilter(context.Context, string, vectorstore.Filter) error {
	return apperrors.VectorStoreUnavailable(errors.New("connection refused"), "delete points")
}

func TestRemoveFileFailClosedKeepsManifestEntry(t *testing.T) {
	store := memory.NewStore()
	reg, _ := newRegistry(&deleteFailingStore{Store: store})
	ctx := context.Background()

	_, err := reg.CreateDomain(ctx, &dto.CreateDomainRequest{Name: "docs"})
	require.NoError(t, err)
	domain, err := reg.GetDomain(ctx, "docs")
	require.NoError(t, err)
	require.NoError(t, reg.RecordFileIndexed(ctx, domain, "a.txt", 10, "", 1))

	err = reg.RemoveFile(ctx, domain, "a.txt")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindVectorUnavailable))

	files, err := reg.ListFiles(ctx, "docs")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.txt", files[0].Filename)
}

func TestSaveSummaryPersists(t *testing.T) {
	reg, _ := newRegistry(memory.NewStore())
	ctx := context.Background()

	_, err := reg.CreateDomain(ctx, &dto.CreateDomainRequest{Name: "docs"})
	require.NoError(t, err)
	domain, err := reg.GetDomain(ctx, "docs")
	require.NoError(t, err)

	require.NoError(t, reg.SaveSummary(ctx, domain, "design notes for the ingestion service"))

	reloaded, err := reg.GetDomain(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, "design notes for the ingestion service", reloaded.Summary)
}

func TestRemoveFileUnknownIsNotFound(t *testing.T) {
	reg, _ := newRegistry(memory.NewStore())
	ctx := context.Background()

	_, err := reg.CreateDomain(ctx, &dto.CreateDomainRequest{Name: "docs"})
	require.NoError(t, err)
	domain, err := reg.GetDomain(ctx, "docs")
	require.NoError(t, err)

	err = reg.RemoveFile(ctx, domain, "missing.txt")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}
