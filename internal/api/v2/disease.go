package api

import (
	"context"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/plantcare-go/plantcare/internal/api/v2/dto"
	"github.com/plantcare-go/plantcare/internal/datastore/entities"
	"github.com/plantcare-go/plantcare/internal/datastore/repository"
	"github.com/plantcare-go/plantcare/internal/disease"
	"github.com/plantcare-go/plantcare/internal/errors"
	"github.com/plantcare-go/plantcare/internal/logger"
)

// UpdateDiseaseCheckRequest is the body of PATCH /disease-checks/:id.
type UpdateDiseaseCheckRequest struct {
	DiseaseTypeID *uint `json:"disease_type_id"`
}

func (c *Controller) initDiseaseRoutes() {
	c.Group.POST("/check-disease", c.CheckDisease)
	c.Group.GET("/disease-checks", c.ListDiseaseChecks)
	c.Group.GET("/disease-checks/:id", c.GetDiseaseCheck)
	c.Group.PATCH("/disease-checks/:id", c.UpdateDiseaseCheck)
	c.Group.DELETE("/disease-checks/:id", c.DeleteDiseaseCheck)
	c.Group.GET("/plants/:id/disease-checks", c.ListPlantDiseaseChecks)
	c.Group.GET("/disease-types", c.ListDiseaseTypes)
	// singular path kept for older clients
	c.Group.GET("/disease-type", c.ListDiseaseTypes)
}

// CheckDisease handles POST /api/v2/check-disease with a multipart "file"
// and "plant_id". Rejections happen before the image is stored or the
// model runs; later failures remove the stored image.
func (c *Controller) CheckDisease(ctx echo.Context) error {
	if err := c.Models.CheckDisease(); err != nil {
		return c.HandleError(ctx, err, msgDiseaseModelNotLoaded, http.StatusServiceUnavailable)
	}

	file, err := ctx.FormFile("file")
	if err != nil {
		return c.respond(ctx, badRequest("file is required", err))
	}
	plantID, err := strconv.ParseUint(ctx.FormValue("plant_id"), 10, 64)
	if err != nil || plantID == 0 {
		return c.respond(ctx, badRequest("plant_id is required", err))
	}
	if err := disease.ValidateImageFormat(file.Filename); err != nil {
		return c.respond(ctx, err)
	}

	reqCtx := ctx.Request().Context()
	plant, err := c.Repos.Plants.GetByID(reqCtx, uint(plantID))
	if err != nil {
		return c.respond(ctx, err)
	}
	if err := c.Policy.Gate(reqCtx, plant.Species); err != nil {
		c.recordRejection(err)
		return c.respond(ctx, err)
	}

	src, err := file.Open()
	if err != nil {
		return c.respond(ctx, badRequest("cannot read upload", err))
	}
	defer src.Close()

	saved, err := c.Uploads.Save(src, file.Filename)
	if err != nil {
		return c.respond(ctx, err)
	}

	decision, err := c.Policy.Decide(reqCtx, plant.Species, func(ctx context.Context) ([]float32, error) {
		f, err := c.Uploads.Open(saved.Name)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return c.Models.ClassifyImage(ctx, f)
	})
	if err != nil {
		c.discardUpload(saved.Name)
		c.recordRejection(err)
		return c.respond(ctx, err)
	}

	check := &entities.DiseaseCheck{
		PlantID:       plant.ID,
		DiseaseTypeID: decision.DiseaseType.ID,
		Confidence:    decision.Confidence,
		ImagePath:     saved.Path,
	}
	if err := c.Repos.DiseaseChecks.Create(reqCtx, check); err != nil {
		c.discardUpload(saved.Name)
		return c.respond(ctx, err)
	}
	check.DiseaseType = &decision.DiseaseType

	if c.metrics != nil {
		c.metrics.Inference.RecordDecision(decision.Band, decision.Unknown)
	}
	c.logger.Info("disease check stored",
		logger.Uint("check_id", check.ID),
		logger.Uint("plant_id", plant.ID),
		logger.String("disease", decision.DiseaseType.Name),
		logger.Float64("confidence", decision.Confidence),
		logger.String("band", decision.Band))

	return ctx.JSON(http.StatusCreated, dto.NewDiseaseCheckResponse(check))
}

func (c *Controller) recordRejection(err error) {
	if c.metrics != nil && errors.Is(err, disease.ErrUnsupportedSpecies) {
		c.metrics.Inference.RecordSpeciesRejection()
	}
}

func (c *Controller) discardUpload(name string) {
	if err := c.Uploads.Remove(name); err != nil {
		c.logger.Warn("failed to remove upload", logger.String("name", name), logger.Error(err))
	}
}

// ListDiseaseChecks handles GET /api/v2/disease-checks
func (c *Controller) ListDiseaseChecks(ctx echo.Context) error {
	opts, err := listOptions(ctx)
	if err != nil {
		return c.respond(ctx, err)
	}
	checks, total, err := c.Repos.DiseaseChecks.List(ctx.Request().Context(), opts)
	if err != nil {
		return c.respond(ctx, err)
	}
	return ctx.JSON(http.StatusOK, NewPaginatedResponse(dto.Map(checks, dto.NewDiseaseCheckResponse), total, opts))
}

// GetDiseaseCheck handles GET /api/v2/disease-checks/:id
func (c *Controller) GetDiseaseCheck(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return c.respond(ctx, err)
	}
	check, err := c.Repos.DiseaseChecks.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return c.respond(ctx, err)
	}
	return ctx.JSON(http.StatusOK, dto.NewDiseaseCheckResponse(check))
}

// UpdateDiseaseCheck handles PATCH /api/v2/disease-checks/:id. The new
// disease type must exist.
func (c *Controller) UpdateDiseaseCheck(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return c.respond(ctx, err)
	}
	var req UpdateDiseaseCheckRequest
	if err := bind(ctx, &req); err != nil {
		return c.respond(ctx, err)
	}

	reqCtx := ctx.Request().Context()
	check, err := c.Repos.DiseaseChecks.GetByID(reqCtx, id)
	if err != nil {
		return c.respond(ctx, err)
	}
	if req.DiseaseTypeID == nil {
		return ctx.JSON(http.StatusOK, dto.NewDiseaseCheckResponse(check))
	}

	if _, err := c.Repos.DiseaseTypes.GetByID(reqCtx, *req.DiseaseTypeID); err != nil {
		if errors.Is(err, repository.ErrDiseaseTypeNotFound) {
			return c.HandleError(ctx, err, msgInvalidDiseaseType, http.StatusBadRequest)
		}
		return c.respond(ctx, err)
	}
	check, err = c.Repos.DiseaseChecks.UpdateDiseaseType(reqCtx, id, *req.DiseaseTypeID)
	if err != nil {
		return c.respond(ctx, err)
	}
	return ctx.JSON(http.StatusOK, dto.NewDiseaseCheckResponse(check))
}

// DeleteDiseaseCheck handles DELETE /api/v2/disease-checks/:id. The stored
// image is removed when it lives in the upload directory.
func (c *Controller) DeleteDiseaseCheck(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return c.respond(ctx, err)
	}

	reqCtx := ctx.Request().Context()
	check, err := c.Repos.DiseaseChecks.GetByID(reqCtx, id)
	if err != nil {
		return c.respond(ctx, err)
	}
	if err := c.Repos.DiseaseChecks.Delete(reqCtx, id); err != nil {
		return c.respond(ctx, err)
	}
	if check.ImagePath != "" && filepath.Dir(check.ImagePath) == filepath.Clean(c.Uploads.Dir()) {
		c.discardUpload(filepath.Base(check.ImagePath))
	}
	return ctx.NoContent(http.StatusNoContent)
}

// ListPlantDiseaseChecks handles GET /api/v2/plants/:id/disease-checks, newest first.
func (c *Controller) ListPlantDiseaseChecks(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return c.respond(ctx, err)
	}
	opts, err := listOptions(ctx)
	if err != nil {
		return c.respond(ctx, err)
	}

	reqCtx := ctx.Request().Context()
	if _, err := c.Repos.Plants.GetByID(reqCtx, id); err != nil {
		return c.respond(ctx, err)
	}
	checks, total, err := c.Repos.DiseaseChecks.ListByPlant(reqCtx, id, opts)
	if err != nil {
		return c.respond(ctx, err)
	}
	return ctx.JSON(http.StatusOK, NewPaginatedResponse(dto.Map(checks, dto.NewDiseaseCheckResponse), total, opts))
}

// ListDiseaseTypes handles GET /api/v2/disease-types in class order.
func (c *Controller) ListDiseaseTypes(ctx echo.Context) error {
	opts, err := listOptions(ctx)
	if err != nil {
		return c.respond(ctx, err)
	}
	types, err := c.Policy.KnownTypes(ctx.Request().Context())
	if err != nil {
		return c.respond(ctx, err)
	}

	total := int64(len(types))
	start := min(opts.Offset, len(types))
	end := min(start+opts.Limit, len(types))
	page := dto.Map(types[start:end], dto.NewDiseaseTypeResponse)
	return ctx.JSON(http.StatusOK, NewPaginatedResponse(page, total, opts))
}
