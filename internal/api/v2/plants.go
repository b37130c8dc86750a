package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/plantcare-go/plantcare/internal/api/v2/dto"
	"github.com/plantcare-go/plantcare/internal/datastore/entities"
	"github.com/plantcare-go/plantcare/internal/datastore/repository"
	"github.com/plantcare-go/plantcare/internal/disease"
	"github.com/plantcare-go/plantcare/internal/errors"
	"github.com/plantcare-go/plantcare/internal/logger"
)

const msgDuplicatePlant = "A plant with this name already exists."

// CreatePlantRequest is the body of POST /plants.
type CreatePlantRequest struct {
	Name    string `json:"name" validate:"required,max=80"`
	Species string `json:"species" validate:"max=120"`
	UserID  uint   `json:"user_id" validate:"required"`
}

// UpdatePlantRequest is the body of PATCH /plants/:id.
type UpdatePlantRequest struct {
	Name    *string `json:"name" validate:"omitempty,max=80"`
	Species *string `json:"species" validate:"omitempty,max=120"`
}

func (c *Controller) initPlantRoutes() {
	c.Group.GET("/plants", c.ListPlants)
	c.Group.POST("/plants", c.CreatePlant)
	c.Group.GET("/plants/:id", c.GetPlant)
	c.Group.PATCH("/plants/:id", c.UpdatePlant)
	c.Group.DELETE("/plants/:id", c.DeletePlant)
}

// ListPlants handles GET /api/v2/plants
func (c *Controller) ListPlants(ctx echo.Context) error {
	opts, err := listOptions(ctx)
	if err != nil {
		return c.respond(ctx, err)
	}
	plants, total, err := c.Repos.Plants.List(ctx.Request().Context(), opts)
	if err != nil {
		return c.respond(ctx, err)
	}
	return ctx.JSON(http.StatusOK, NewPaginatedResponse(dto.Map(plants, dto.NewPlantResponse), total, opts))
}

// CreatePlant handles POST /api/v2/plants. Name and species are normalized.
func (c *Controller) CreatePlant(ctx echo.Context) error {
	var req CreatePlantRequest
	if err := bind(ctx, &req); err != nil {
		return c.respond(ctx, err)
	}
	name := disease.NormalizeName(req.Name)
	if name == "" {
		return c.respond(ctx, badRequest("name is required", nil))
	}

	reqCtx := ctx.Request().Context()
	if _, err := c.Repos.Users.GetByID(reqCtx, req.UserID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.HandleError(ctx, err, "User not found", http.StatusNotFound)
		}
		return c.respond(ctx, err)
	}

	plant := &entities.Plant{Name: name, Species: disease.NormalizeName(req.Species), UserID: req.UserID}
	if err := c.Repos.Plants.Create(reqCtx, plant); err != nil {
		return c.plantWriteError(ctx, err)
	}

	c.logger.Info("plant created",
		logger.Uint("plant_id", plant.ID),
		logger.Uint("user_id", plant.UserID),
		logger.String("species", plant.Species))
	return ctx.JSON(http.StatusCreated, dto.NewPlantResponse(plant))
}

// GetPlant handles GET /api/v2/plants/:id
func (c *Controller) GetPlant(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return c.respond(ctx, err)
	}
	plant, err := c.Repos.Plants.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return c.respond(ctx, err)
	}
	return ctx.JSON(http.StatusOK, dto.NewPlantResponse(plant))
}

// UpdatePlant handles PATCH /api/v2/plants/:id
func (c *Controller) UpdatePlant(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return c.respond(ctx, err)
	}
	var req UpdatePlantRequest
	if err := bind(ctx, &req); err != nil {
		return c.respond(ctx, err)
	}

	var changes repository.PlantChanges
	if req.Name != nil {
		name := disease.NormalizeName(*req.Name)
		if name == "" {
			return c.respond(ctx, badRequest("name must not be empty", nil))
		}
		changes.Name = &name
	}
	if req.Species != nil {
		species := disease.NormalizeName(*req.Species)
		changes.Species = &species
	}

	plant, err := c.Repos.Plants.Update(ctx.Request().Context(), id, changes)
	if err != nil {
		return c.plantWriteError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, dto.NewPlantResponse(plant))
}

// DeletePlant handles DELETE /api/v2/plants/:id. Growth logs, disease
// checks and care records of the plant are removed with it.
func (c *Controller) DeletePlant(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return c.respond(ctx, err)
	}
	if err := c.Repos.Plants.Delete(ctx.Request().Context(), id); err != nil {
		return c.respond(ctx, err)
	}
	c.logger.Info("plant deleted", logger.Uint("plant_id", id))
	return ctx.NoContent(http.StatusNoContent)
}

func (c *Controller) plantWriteError(ctx echo.Context, err error) error {
	if errors.Is(err, repository.ErrDuplicateKey) {
		return c.HandleError(ctx, err, msgDuplicatePlant, http.StatusConflict)
	}
	return c.respond(ctx, err)
}
