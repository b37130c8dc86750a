package api

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/plantcare-go/plantcare/internal/datastore/repository"
)

// List pagination bounds.
const (
	DefaultPageLimit = 100
	MaxPageLimit     = 1000
)

// PaginatedResponse represents a paginated API response
type PaginatedResponse struct {
	Data        any   `json:"data"`
	Total       int64 `json:"total"`
	Limit       int   `json:"limit"`
	Offset      int   `json:"offset"`
	CurrentPage int   `json:"current_page"`
	TotalPages  int   `json:"total_pages"`
}

// NewPaginatedResponse wraps one page of data.
func NewPaginatedResponse(data any, total int64, opts repository.ListOptions) PaginatedResponse {
	resp := PaginatedResponse{
		Data:        data,
		Total:       total,
		Limit:       opts.Limit,
		Offset:      opts.Offset,
		CurrentPage: 1,
	}
	if opts.Limit > 0 {
		resp.CurrentPage = opts.Offset/opts.Limit + 1
		resp.TotalPages = int((total + int64(opts.Limit) - 1) / int64(opts.Limit))
	}
	return resp
}

// listOptions reads limit and offset query parameters. Limit defaults to
// DefaultPageLimit and is capped at MaxPageLimit.
func listOptions(ctx echo.Context) (repository.ListOptions, error) {
	opts := repository.ListOptions{Limit: DefaultPageLimit}

	if raw := ctx.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return opts, badRequest("limit must be a positive integer", err)
		}
		opts.Limit = min(limit, MaxPageLimit)
	}
	if raw := ctx.QueryParam("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return opts, badRequest("offset must be a non-negative integer", err)
		}
		opts.Offset = offset
	}
	return opts, nil
}

// pathID parses a positive integer path parameter.
func pathID(ctx echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, badRequest("invalid "+name, err)
	}
	return uint(id), nil
}

// bind decodes and validates a request body.
func bind(ctx echo.Context, req any) error {
	if err := ctx.Bind(req); err != nil {
		return badRequest("Invalid request body", err)
	}
	return ctx.Validate(req)
}
