package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/plantcare-go/plantcare/internal/api/v2/dto"
	"github.com/plantcare-go/plantcare/internal/datastore/entities"
	"github.com/plantcare-go/plantcare/internal/errors"
	"github.com/plantcare-go/plantcare/internal/features"
	"github.com/plantcare-go/plantcare/internal/inference"
	"github.com/plantcare-go/plantcare/internal/logger"
)

// PredictGrowthRequest is one growth observation. The numeric fields are
// pointers so an explicit zero is distinguishable from a missing value.
type PredictGrowthRequest struct {
	PlantID        uint     `json:"plant_id" validate:"required"`
	SoilType       string   `json:"soil_type" validate:"required,max=50"`
	SunlightHours  *float64 `json:"sunlight_hours" validate:"required"`
	WaterFrequency string   `json:"water_frequency" validate:"required,max=50"`
	FertilizerType string   `json:"fertilizer_type" validate:"required,max=50"`
	Temperature    *float64 `json:"temperature" validate:"required"`
	Humidity       *float64 `json:"humidity" validate:"required"`
}

// UpdateGrowthLogRequest is the body of PATCH /growth-logs/:id.
type UpdateGrowthLogRequest struct {
	PredictedMilestone *int `json:"predicted_milestone"`
}

func (c *Controller) initGrowthRoutes() {
	c.Group.POST("/predict-growth", c.PredictGrowth)
	c.Group.GET("/growth-logs", c.ListGrowthLogs)
	c.Group.GET("/growth-logs/:id", c.GetGrowthLog)
	c.Group.PATCH("/growth-logs/:id", c.UpdateGrowthLog)
	c.Group.DELETE("/growth-logs/:id", c.DeleteGrowthLog)
	c.Group.GET("/plants/:id/growth-logs", c.ListPlantGrowthLogs)
}

func (r *PredictGrowthRequest) observation() features.Observation {
	return features.Observation{
		SoilType:       r.SoilType,
		SunlightHours:  *r.SunlightHours,
		WaterFrequency: r.WaterFrequency,
		FertilizerType: r.FertilizerType,
		Temperature:    *r.Temperature,
		Humidity:       *r.Humidity,
	}
}

// PredictGrowth handles POST /api/v2/predict-growth. The observation is
// encoded against the reference schema, scored by the growth model and
// stored as a new growth log.
func (c *Controller) PredictGrowth(ctx echo.Context) error {
	var req PredictGrowthRequest
	if err := bind(ctx, &req); err != nil {
		return c.respond(ctx, err)
	}

	if err := c.Models.CheckGrowth(); err != nil {
		if errors.Is(err, inference.ErrModelUnavailable) {
			return c.HandleError(ctx, err, msgGrowthModelNotLoaded, http.StatusServiceUnavailable)
		}
		return c.respond(ctx, err)
	}

	reqCtx := ctx.Request().Context()
	if _, err := c.Repos.Plants.GetByID(reqCtx, req.PlantID); err != nil {
		return c.respond(ctx, err)
	}

	milestone, err := c.Models.PredictGrowth(reqCtx, req.observation())
	if err != nil {
		return c.respond(ctx, err)
	}

	now := time.Now().UTC()
	log := &entities.GrowthLog{
		PlantID:            req.PlantID,
		Date:               &now,
		SoilType:           req.SoilType,
		SunlightHours:      *req.SunlightHours,
		WaterFrequency:     req.WaterFrequency,
		FertilizerType:     req.FertilizerType,
		Temperature:        *req.Temperature,
		Humidity:           *req.Humidity,
		PredictedMilestone: &milestone,
	}
	if err := c.Repos.GrowthLogs.Create(reqCtx, log); err != nil {
		return c.respond(ctx, err)
	}

	c.logger.Info("growth predicted",
		logger.Uint("plant_id", req.PlantID),
		logger.Uint("growth_log_id", log.ID),
		logger.Int("milestone", milestone))
	return ctx.JSON(http.StatusCreated, dto.NewGrowthLogResponse(log))
}

// ListGrowthLogs handles GET /api/v2/growth-logs
func (c *Controller) ListGrowthLogs(ctx echo.Context) error {
	opts, err := listOptions(ctx)
	if err != nil {
		return c.respond(ctx, err)
	}
	logs, total, err := c.Repos.GrowthLogs.List(ctx.Request().Context(), opts)
	if err != nil {
		return c.respond(ctx, err)
	}
	return ctx.JSON(http.StatusOK, NewPaginatedResponse(dto.Map(logs, dto.NewGrowthLogResponse), total, opts))
}

// GetGrowthLog handles GET /api/v2/growth-logs/:id
func (c *Controller) GetGrowthLog(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return c.respond(ctx, err)
	}
	log, err := c.Repos.GrowthLogs.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return c.respond(ctx, err)
	}
	return ctx.JSON(http.StatusOK, dto.NewGrowthLogResponse(log))
}

// UpdateGrowthLog handles PATCH /api/v2/growth-logs/:id. Only the predicted
// milestone can be corrected.
func (c *Controller) UpdateGrowthLog(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return c.respond(ctx, err)
	}
	var req UpdateGrowthLogRequest
	if err := bind(ctx, &req); err != nil {
		return c.respond(ctx, err)
	}

	reqCtx := ctx.Request().Context()
	var log *entities.GrowthLog
	if req.PredictedMilestone == nil {
		log, err = c.Repos.GrowthLogs.GetByID(reqCtx, id)
	} else {
		log, err = c.Repos.GrowthLogs.UpdateMilestone(reqCtx, id, req.PredictedMilestone)
	}
	if err != nil {
		return c.respond(ctx, err)
	}
	return ctx.JSON(http.StatusOK, dto.NewGrowthLogResponse(log))
}

// DeleteGrowthLog handles DELETE /api/v2/growth-logs/:id. Care records that
// referenced the log keep existing without the link.
func (c *Controller) DeleteGrowthLog(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return c.respond(ctx, err)
	}
	if err := c.Repos.GrowthLogs.Delete(ctx.Request().Context(), id); err != nil {
		return c.respond(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// ListPlantGrowthLogs handles GET /api/v2/plants/:id/growth-logs, newest first.
func (c *Controller) ListPlantGrowthLogs(ctx echo.Context) error {
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
	logs, total, err := c.Repos.GrowthLogs.ListByPlant(reqCtx, id, opts)
	if err != nil {
		return c.respond(ctx, err)
	}
	return ctx.JSON(http.StatusOK, NewPaginatedResponse(dto.Map(logs, dto.NewGrowthLogResponse), total, opts))
}
