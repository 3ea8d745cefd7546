package controller

import (
	"net/url"

	"doc-domains-be/internal/apperrors"
	"doc-domains-be/internal/pkg/serverutils"
	"doc-domains-be/internal/service"
	"doc-domains-be/pkg/filestorage"

	"github.com/gofiber/fiber/v2"
)

type IFileController interface {
	RegisterRoutes(r fiber.Router)
	Upload(ctx *fiber.Ctx) error
	GetAll(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	Reindex(ctx *fiber.Ctx) error
}

type fileController struct {
	registry service.IRegistryService
	ingest   service.IIngestService
	summary  service.ISummaryService
	files    *filestorage.Storage
}

func NewFileController(
	registry service.IRegistryService,
	ingest service.IIngestService,
	summary service.ISummaryService,
	files *filestorage.Storage,
) IFileController {
	return &fileController{registry: registry, ingest: ingest, summary: summary, files: files}
}

func (c *fileController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/domains/v1/:domain")
	h.Use(serverutils.JwtMiddleware)
	h.Get("/files", c.GetAll)
	h.Post("/files", serverutils.RequireAdmin, c.Upload)
	h.Delete("/files/:filename", serverutils.RequireAdmin, c.Delete)
	h.Post("/reindex", serverutils.RequireAdmin, c.Reindex)
}

// Upload accepts a multipart batch under the "files" field, persists each
// upload under the domain's directory and indexes the batch. The domain is
// resolved first so bytes land under the normalized name the indexer and
// reindex read from, whatever spelling the route carried.
func (c *fileController) Upload(ctx *fiber.Ctx) error {
	domain, err := c.registry.GetDomain(ctx.Context(), ctx.Params("domain"))
	if err != nil {
		return err
	}
	domainName := domain.Name

	form, err := ctx.MultipartForm()
	if err != nil {
		return apperrors.ConfigurationError("invalid multipart form: %v", err)
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		return apperrors.ConfigurationError("no files provided under the 'files' field")
	}

	batch := make([]service.IngestFile, 0, len(headers))
	for _, header := range headers {
		src, err := header.Open()
		if err != nil {
			return apperrors.ConfigurationError("cannot read upload %q: %v", header.Filename, err)
		}
		info, err := c.files.Save(domainName, header.Filename, src)
		src.Close()
		if err != nil {
			return err
		}
		batch = append(batch, service.IngestFile{
			Filename: info.Filename,
			Path:     c.files.Path(domainName, info.Filename),
		})
	}

	report, err := c.ingest.IndexFiles(ctx.Context(), domainName, batch)
	if err != nil {
		return err
	}
	c.summary.Invalidate(domainName)

	return ctx.JSON(serverutils.SuccessResponse("Success index files", report))
}

func (c *fileController) GetAll(ctx *fiber.Ctx) error {
	res, err := c.registry.ListFiles(ctx.Context(), ctx.Params("domain"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get all files", res))
}

func (c *fileController) Delete(ctx *fiber.Ctx) error {
	domain, err := c.registry.GetDomain(ctx.Context(), ctx.Params("domain"))
	if err != nil {
		return err
	}
	domainName := domain.Name
	filename, err := decodeParam(ctx, "filename")
	if err != nil {
		return err
	}

	res, err := c.ingest.DeleteFile(ctx.Context(), domainName, filename)
	if err != nil {
		return err
	}
	c.summary.Invalidate(domainName)

	return ctx.JSON(serverutils.SuccessResponse("Success delete file", res))
}

func (c *fileController) Reindex(ctx *fiber.Ctx) error {
	domain, err := c.registry.GetDomain(ctx.Context(), ctx.Params("domain"))
	if err != nil {
		return err
	}
	domainName := domain.Name

	res, err := c.ingest.ReindexDomain(ctx.Context(), domainName)
	if err != nil {
		return err
	}
	c.summary.Invalidate(domainName)

	return ctx.JSON(serverutils.SuccessResponse("Success reindex domain", res))
}

// decodeParam unescapes a path parameter so filenames with spaces work.
func decodeParam(ctx *fiber.Ctx, name string) (string, error) {
	value, err := url.PathUnescape(ctx.Params(name))
	if err != nil {
		return "", apperrors.ConfigurationError("invalid %s parameter", name)
	}
	return value, nil
}
