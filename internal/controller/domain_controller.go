package controller

import (
	"doc-domains-be/internal/dto"
	"doc-domains-be/internal/pkg/serverutils"
	"doc-domains-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IDomainController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	GetAll(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	Summary(ctx *fiber.Ctx) error
	Summarize(ctx *fiber.Ctx) error
}

type domainController struct {
	registry service.IRegistryService
	summary  service.ISummaryService
}

func NewDomainController(registry service.IRegistryService, summary service.ISummaryService) IDomainController {
	return &domainController{registry: registry, summary: summary}
}

func (c *domainController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/domains/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Get("", c.GetAll)
	h.Get(":domain", c.Show)
	h.Get(":domain/summary", c.Summary)
	h.Post("", serverutils.RequireAdmin, c.Create)
	h.Delete(":domain", serverutils.RequireAdmin, c.Delete)
	h.Post(":domain/summarize", serverutils.RequireAdmin, c.Summarize)
}

func (c *domainController) Create(ctx *fiber.Ctx) error {
	var req dto.CreateDomainRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.registry.CreateDomain(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create domain", res))
}

func (c *domainController) GetAll(ctx *fiber.Ctx) error {
	res, err := c.registry.ListDomains(ctx.Context())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get all domains", res))
}

func (c *domainController) Show(ctx *fiber.Ctx) error {
	res, err := c.registry.GetDomainInfo(ctx.Context(), ctx.Params("domain"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get domain info", res))
}

func (c *domainController) Delete(ctx *fiber.Ctx) error {
	name := ctx.Params("domain")
	if err := c.registry.DeleteDomain(ctx.Context(), name); err != nil {
		return err
	}
	c.summary.Invalidate(name)

	return ctx.JSON(serverutils.SuccessResponse("Success delete domain", fiber.Map{"domain": name}))
}

func (c *domainController) Summary(ctx *fiber.Ctx) error {
	res, err := c.summary.GetDomainSummary(ctx.Context(), ctx.Params("domain"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get domain summary", res))
}

// Summarize forces regeneration, skipping the cache.
func (c *domainController) Summarize(ctx *fiber.Ctx) error {
	name := ctx.Params("domain")
	c.summary.Invalidate(name)

	res, err := c.summary.GetDomainSummary(ctx.Context(), name)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success summarize domain", res))
}
