package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-domains-be/internal/apperrors"
	"doc-domains-be/internal/dto"
	"doc-domains-be/pkg/chunker"
	"doc-domains-be/pkg/domainlock"
	"doc-domains-be/pkg/filestorage"
	"doc-domains-be/pkg/parser"
	"doc-domains-be/pkg/vectorstore/memory"
)

type fixedEmbedder struct {
	dim int
}

func (e *fixedEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, e.dim)
		v[0] = float32(len(text))
		out[i] = v
	}
	return out, nil
}

func (e *fixedEmbedder) Dimension() int { return e.dim }

type ingestFixture struct {
	ingest  IIngestService
	reg     IRegistryService
	store   *memory.Store
	files   *filestorage.Storage
	locks   *domainlock.Registry
	uploads string
}

func newIngestFixture(t *testing.T) *ingestFixture {
	t.Helper()

	store := memory.NewStore()
	reg, _ := newRegistry(store)

	uploads := t.TempDir()
	files, err := filestorage.NewStorage(uploads)
	require.NoError(t, err)

	textChunker, err := chunker.New(chunker.Config{MaxChunkSize: 40, Overlap: 8})
	require.NoError(t, err)

	locks := domainlock.NewRegistry()
	ingest := NewIngestService(
		reg, store, &fixedEmbedder{dim: 4}, parser.New(), textChunker,
		files, locks, nil, nil, testLogger{}, 2, 2,
	)

	return &ingestFixture{
		ingest:  ingest,
		reg:     reg,
		store:   store,
		files:   files,
		locks:   locks,
		uploads: uploads,
	}
}

func (f *ingestFixture) createDomain(t *testing.T, name string) {
	t.Helper()
	_, err := f.reg.CreateDomain(context.Background(), &dto.CreateDomainRequest{Name: name})
	require.NoError(t, err)
}

// storeFile writes content into the domain's upload dir and returns the
// batch entry for it.
func (f *ingestFixture) storeFile(t *testing.T, domain, filename, content string) IngestFile {
	t.Helper()
	dir := filepath.Join(f.uploads, domain)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, filename)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return IngestFile{Filename: filename, Path: path}
}

func pointsCount(t *testing.T, store *memory.Store, collection string) int64 {
	t.Helper()
	info, err := store.GetCollectionInfo(context.Background(), collection)
	require.NoError(t, err)
	return info.PointsCount
}

func TestIndexFilesHappyPath(t *testing.T) {
	f := newIngestFixture(t)
	f.createDomain(t, "docs")
	ctx := context.Background()

	batch := []IngestFile{
		f.storeFile(t, "docs", "a.txt", "alpha beta gamma delta epsilon zeta eta theta iota kappa"),
		f.storeFile(t, "docs", "b.md", "# Heading\n\nsome markdown body that spans a couple of chunks at least"),
	}

	report, err := f.ingest.IndexFiles(ctx, "docs", batch)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 0, report.Failed)
	require.Len(t, report.Files, 2)
	assert.Equal(t, "a.txt", report.Files[0].Filename)
	assert.Greater(t, report.Files[0].ChunkCount, 0)

	files, err := f.reg.ListFiles(ctx, "docs")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "indexed", files[0].Status)

	var wantPoints int64
	for _, fr := range report.Files {
		wantPoints += int64(fr.ChunkCount)
	}
	assert.Equal(t, wantPoints, pointsCount(t, f.store, "docs"))
}

func TestIndexFilesIsIdempotent(t *testing.T) {
	f := newIngestFixture(t)
	f.createDomain(t, "docs")
	ctx := context.Background()

	batch := []IngestFile{
		f.storeFile(t, "docs", "a.txt", "the same content indexed twice must not grow the collection"),
	}

	first, err := f.ingest.IndexFiles(ctx, "docs", batch)
	require.NoError(t, err)
	countAfterFirst := pointsCount(t, f.store, "docs")

	second, err := f.ingest.IndexFiles(ctx, "docs", batch)
	require.NoError(t, err)
	assert.Equal(t, first.Files[0].ChunkCount, second.Files[0].ChunkCount)
	assert.Equal(t, countAfterFirst, pointsCount(t, f.store, "docs"))
}

func TestIndexFilesReuploadShrinksStalePoints(t *testing.T) {
	f := newIngestFixture(t)
	f.createDomain(t, "docs")
	ctx := context.Background()

	long := f.storeFile(t, "docs", "a.txt", "one two three four five six seven eight nine ten eleven twelve thirteen fourteen")
	_, err := f.ingest.IndexFiles(ctx, "docs", []IngestFile{long})
	require.NoError(t, err)

	short := f.storeFile(t, "docs", "a.txt", "tiny now")
	report, err := f.ingest.IndexFiles(ctx, "docs", []IngestFile{short})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Files[0].ChunkCount)
	assert.Equal(t, int64(1), pointsCount(t, f.store, "docs"))
}

func TestIndexFilesPartialFailure(t *testing.T) {
	f := newIngestFixture(t)
	f.createDomain(t, "docs")
	ctx := context.Background()

	batch := []IngestFile{
		f.storeFile(t, "docs", "good.txt", "perfectly fine text content for indexing"),
		f.storeFile(t, "docs", "image.png", "not really an image"),
	}

	report, err := f.ingest.IndexFiles(ctx, "docs", batch)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Failed)

	byName := map[string]dto.FileReport{}
	for _, fr := range report.Files {
		byName[fr.Filename] = fr
	}
	assert.Equal(t, "indexed", byName["good.txt"].Status)
	assert.Equal(t, "error", byName["image.png"].Status)
	assert.NotEmpty(t, byName["image.png"].Error)

	files, err := f.reg.ListFiles(ctx, "docs")
	require.NoError(t, err)
	require.Len(t, files, 2)
}

func TestIndexFilesUnknownDomain(t *testing.T) {
	f := newIngestFixture(t)

	_, err := f.ingest.IndexFiles(context.Background(), "ghost", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestIndexFilesBusyDuringReindex(t *testing.T) {
	f := newIngestFixture(t)
	f.createDomain(t, "docs")

	release, err := f.locks.AcquireExclusive("docs")
	require.NoError(t, err)
	defer release()

	_, err = f.ingest.IndexFiles(context.Background(), "docs", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindBusy))

	_, err = f.ingest.ReindexDomain(context.Background(), "docs")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindBusy))
}

func TestReindexBusyWhileIngestionRuns(t *testing.T) {
	f := newIngestFixture(t)
	f.createDomain(t, "docs")

	release, err := f.locks.AcquireShared("docs")
	require.NoError(t, err)
	defer release()

	_, err = f.ingest.ReindexDomain(context.Background(), "docs")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindBusy))
}

func TestDeleteFileRemovesPointsManifestAndBytes(t *testing.T) {
	f := newIngestFixture(t)
	f.createDomain(t, "docs")
	ctx := context.Background()

	batch := []IngestFile{
		f.storeFile(t, "docs", "a.txt", "file a content with enough words to produce several chunks in the index"),
		f.storeFile(t, "docs", "b.txt", "file b content that stays behind"),
	}
	_, err := f.ingest.IndexFiles(ctx, "docs", batch)
	require.NoError(t, err)
	total := pointsCount(t, f.store, "docs")

	resp, err := f.ingest.DeleteFile(ctx, "docs", "a.txt")
	require.NoError(t, err)
	assert.Empty(t, resp.Warning)

	files, err := f.reg.ListFiles(ctx, "docs")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "b.txt", files[0].Filename)

	assert.Less(t, pointsCount(t, f.store, "docs"), total)
	_, err = os.Stat(filepath.Join(f.uploads, "docs", "a.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestDeleteFileMissingBytesIsStillSuccess(t *testing.T) {
	f := newIngestFixture(t)
	f.createDomain(t, "docs")
	ctx := context.Background()

	domain, err := f.reg.GetDomain(ctx, "docs")
	require.NoError(t, err)
	require.NoError(t, f.reg.RecordFileIndexed(ctx, domain, "phantom.txt", 0, "", 0))

	resp, err := f.ingest.DeleteFile(ctx, "docs", "phantom.txt")
	require.NoError(t, err)
	assert.Empty(t, resp.Warning)

	files, err := f.reg.ListFiles(ctx, "docs")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestReindexRebuildsFromDisk(t *testing.T) {
	f := newIngestFixture(t)
	f.createDomain(t, "docs")
	ctx := context.Background()

	batch := []IngestFile{
		f.storeFile(t, "docs", "a.txt", "original content for file a that will be reindexed"),
		f.storeFile(t, "docs", "b.txt", "original content for file b that will be reindexed"),
	}
	_, err := f.ingest.IndexFiles(ctx, "docs", batch)
	require.NoError(t, err)
	before := pointsCount(t, f.store, "docs")

	resp, err := f.ingest.ReindexDomain(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Report.Succeeded)
	assert.Equal(t, before, pointsCount(t, f.store, "docs"))

	files, err := f.reg.ListFiles(ctx, "docs")
	require.NoError(t, err)
	require.Len(t, files, 2)
	for _, file := range files {
		assert.Equal(t, "indexed", file.Status)
	}
}

func TestPointIDIsDeterministic(t *testing.T) {
	a := PointID("docs", "a.txt", 0)
	b := PointID("docs", "a.txt", 0)
	c := PointID("docs", "a.txt", 1)
	d := PointID("wiki", "a.txt", 0)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
}
