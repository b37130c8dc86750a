package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/plantcare-go/plantcare/internal/api/v2/dto"
	"github.com/plantcare-go/plantcare/internal/datastore/entities"
	"github.com/plantcare-go/plantcare/internal/datastore/repository"
	"github.com/plantcare-go/plantcare/internal/errors"
	"github.com/plantcare-go/plantcare/internal/logger"
)

// CreatePlantCareRequest is the body of POST /plant-cares.
type CreatePlantCareRequest struct {
	PlantID        uint   `json:"plant_id" validate:"required"`
	MedicineName   string `json:"medicine_name" validate:"required,max=100"`
	Notes          string `json:"notes"`
	GrowthLogID    *uint  `json:"growth_log_id"`
	DiseaseCheckID *uint  `json:"disease_check_id"`
}

// UpdatePlantCareRequest is the body of PATCH /plant-cares/:id.
type UpdatePlantCareRequest struct {
	MedicineName *string `json:"medicine_name" validate:"omitempty,max=100"`
	Notes        *string `json:"notes"`
}

func (c *Controller) initCareRoutes() {
	c.Group.GET("/plant-cares", c.ListPlantCares)
	c.Group.POST("/plant-cares", c.CreatePlantCare)
	c.Group.GET("/plant-cares/:id", c.GetPlantCare)
	c.Group.PATCH("/plant-cares/:id", c.UpdatePlantCare)
	c.Group.DELETE("/plant-cares/:id", c.DeletePlantCare)
	c.Group.GET("/plants/:id/cares", c.ListPlantCareHistory)
}

// ListPlantCares handles GET /api/v2/plant-cares
func (c *Controller) ListPlantCares(ctx echo.Context) error {
	opts, err := listOptions(ctx)
	if err != nil {
		return c.respond(ctx, err)
	}
	cares, total, err := c.Repos.PlantCares.List(ctx.Request().Context(), opts)
	if err != nil {
		return c.respond(ctx, err)
	}
	return ctx.JSON(http.StatusOK, NewPaginatedResponse(dto.Map(cares, dto.NewPlantCareResponse), total, opts))
}

// CreatePlantCare handles POST /api/v2/plant-cares. Linked growth logs and
// disease checks must exist.
func (c *Controller) CreatePlantCare(ctx echo.Context) error {
	var req CreatePlantCareRequest
	if err := bind(ctx, &req); err != nil {
		return c.respond(ctx, err)
	}

	reqCtx := ctx.Request().Context()
	if _, err := c.Repos.Plants.GetByID(reqCtx, req.PlantID); err != nil {
		return c.respond(ctx, err)
	}
	if req.GrowthLogID != nil {
		if _, err := c.Repos.GrowthLogs.GetByID(reqCtx, *req.GrowthLogID); err != nil {
			return c.referenceError(ctx, err, repository.ErrGrowthLogNotFound, "invalid growth log id")
		}
	}
	if req.DiseaseCheckID != nil {
		if _, err := c.Repos.DiseaseChecks.GetByID(reqCtx, *req.DiseaseCheckID); err != nil {
			return c.referenceError(ctx, err, repository.ErrDiseaseCheckNotFound, "invalid disease check id")
		}
	}

	care := &entities.PlantCare{
		PlantID:        req.PlantID,
		MedicineName:   req.MedicineName,
		Notes:          req.Notes,
		GrowthLogID:    req.GrowthLogID,
		DiseaseCheckID: req.DiseaseCheckID,
	}
	if err := c.Repos.PlantCares.Create(reqCtx, care); err != nil {
		return c.respond(ctx, err)
	}

	c.logger.Info("plant care recorded",
		logger.Uint("care_id", care.ID),
		logger.Uint("plant_id", care.PlantID),
		logger.String("medicine", care.MedicineName))
	return ctx.JSON(http.StatusCreated, dto.NewPlantCareResponse(care))
}

// referenceError turns a missing linked record into a 400.
func (c *Controller) referenceError(ctx echo.Context, err, missing error, message string) error {
	if errors.Is(err, missing) {
		return c.HandleError(ctx, err, message, http.StatusBadRequest)
	}
	return c.respond(ctx, err)
}

// GetPlantCare handles GET /api/v2/plant-cares/:id
func (c *Controller) GetPlantCare(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return c.respond(ctx, err)
	}
	care, err := c.Repos.PlantCares.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return c.respond(ctx, err)
	}
	return ctx.JSON(http.StatusOK, dto.NewPlantCareResponse(care))
}

// UpdatePlantCare handles PATCH /api/v2/plant-cares/:id
func (c *Controller) UpdatePlantCare(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return c.respond(ctx, err)
	}
	var req UpdatePlantCareRequest
	if err := bind(ctx, &req); err != nil {
		return c.respond(ctx, err)
	}

	care, err := c.Repos.PlantCares.Update(ctx.Request().Context(), id, repository.PlantCareChanges{
		MedicineName: req.MedicineName,
		Notes:        req.Notes,
	})
	if err != nil {
		return c.respond(ctx, err)
	}
	return ctx.JSON(http.StatusOK, dto.NewPlantCareResponse(care))
}

// DeletePlantCare handles DELETE /api/v2/plant-cares/:id
func (c *Controller) DeletePlantCare(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return c.respond(ctx, err)
	}
	if err := c.Repos.PlantCares.Delete(ctx.Request().Context(), id); err != nil {
		return c.respond(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// ListPlantCareHistory handles GET /api/v2/plants/:id/cares, most recent first.
func (c *Controller) ListPlantCareHistory(ctx echo.Context) error {
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
	cares, total, err := c.Repos.PlantCares.ListByPlant(reqCtx, id, opts)
	if err != nil {
		return c.respond(ctx, err)
	}
	return ctx.JSON(http.StatusOK, NewPaginatedResponse(dto.Map(cares, dto.NewPlantCareResponse), total, opts))
}
