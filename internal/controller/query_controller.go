package controller

import (
	"bufio"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"doc-domains-be/internal/dto"
	"doc-domains-be/internal/pkg/logger"
	"doc-domains-be/internal/pkg/serverutils"
	"doc-domains-be/internal/service"
)

type IQueryController interface {
	RegisterRoutes(r fiber.Router)
	Query(ctx *fiber.Ctx) error
	QueryStream(ctx *fiber.Ctx) error
}

type queryController struct {
	query service.IQueryService
	log   logger.ILogger
}

func NewQueryController(query service.IQueryService, log logger.ILogger) IQueryController {
	return &queryController{query: query, log: log}
}

func (c *queryController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/domains/v1/:domain")
	h.Use(serverutils.JwtMiddleware)
	h.Post("/query", c.Query)
	h.Post("/query/stream", c.QueryStream)
}

func (c *queryController) Query(ctx *fiber.Ctx) error {
	var req dto.QueryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.query.Query(ctx.Context(), ctx.Params("domain"), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success answer query", res))
}

// QueryStream answers a query over SSE. Pipeline stages, answer deltas and
// the final result arrive as JSON frames; errors after the stream opened
// arrive as an "error" frame since the status line is already sent.
func (c *queryController) QueryStream(ctx *fiber.Ctx) error {
	domainName := ctx.Params("domain")

	var req dto.QueryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	ctx.Set("Content-Type", "text/event-stream")
	ctx.Set("Cache-Control", "no-cache")
	ctx.Set("Connection", "keep-alive")
	ctx.Set("X-Accel-Buffering", "no")

	reqCtx := ctx.Context()
	ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		emit := func(event dto.StreamEvent) error {
			payload, err := json.Marshal(event)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return err
			}
			return w.Flush()
		}

		if err := c.query.QueryStream(reqCtx, domainName, &req, emit); err != nil {
			c.log.Warn("query_controller", "streaming query ended with error", map[string]interface{}{
				"domain": domainName,
				"error":  err.Error(),
			})
		}
	}))

	return nil
}
