package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/plantcare-go/plantcare/internal/api/v2/dto"
	"github.com/plantcare-go/plantcare/internal/datastore/entities"
	"github.com/plantcare-go/plantcare/internal/datastore/repository"
	"github.com/plantcare-go/plantcare/internal/errors"
	"github.com/plantcare-go/plantcare/internal/logger"
)

// CreateUserRequest is the body of POST /users.
type CreateUserRequest struct {
	Username string `json:"username" validate:"required,max=80"`
	Email    string `json:"email" validate:"required,max=120,email_format"`
	Password string `json:"password" validate:"required,max=72,password_strength"`
}

// UpdateUserRequest is the body of PATCH /users/:id. Absent fields are kept.
type UpdateUserRequest struct {
	Username *string `json:"username" validate:"omitempty,min=1,max=80"`
	Email    *string `json:"email" validate:"omitempty,max=120,email_format"`
	Password *string `json:"password" validate:"omitempty,max=72,password_strength"`
}

func (c *Controller) initUserRoutes() {
	c.Group.GET("/users", c.ListUsers)
	c.Group.POST("/users", c.CreateUser)
	c.Group.GET("/users/:id", c.GetUser)
	c.Group.PATCH("/users/:id", c.UpdateUser)
	c.Group.DELETE("/users/:id", c.DeleteUser)
	c.Group.GET("/users/:id/plants", c.ListUserPlants)
}

// ListUsers handles GET /api/v2/users
func (c *Controller) ListUsers(ctx echo.Context) error {
	opts, err := listOptions(ctx)
	if err != nil {
		return c.respond(ctx, err)
	}
	users, total, err := c.Repos.Users.List(ctx.Request().Context(), opts)
	if err != nil {
		return c.respond(ctx, err)
	}
	return ctx.JSON(http.StatusOK, NewPaginatedResponse(dto.Map(users, dto.NewUserResponse), total, opts))
}

// CreateUser handles POST /api/v2/users
func (c *Controller) CreateUser(ctx echo.Context) error {
	var req CreateUserRequest
	if err := bind(ctx, &req); err != nil {
		return c.respond(ctx, err)
	}

	hash, err := c.hashPassword(req.Password)
	if err != nil {
		return c.respond(ctx, err)
	}

	user := &entities.User{Username: req.Username, Email: req.Email, Password: hash}
	if err := c.Repos.Users.Create(ctx.Request().Context(), user); err != nil {
		return c.userWriteError(ctx, err)
	}

	c.logger.Info("user created", logger.Uint("user_id", user.ID))
	return ctx.JSON(http.StatusCreated, dto.NewUserResponse(user))
}

// GetUser handles GET /api/v2/users/:id
func (c *Controller) GetUser(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return c.respond(ctx, err)
	}
	user, err := c.Repos.Users.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return c.respond(ctx, err)
	}
	return ctx.JSON(http.StatusOK, dto.NewUserResponse(user))
}

// UpdateUser handles PATCH /api/v2/users/:id
func (c *Controller) UpdateUser(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return c.respond(ctx, err)
	}
	var req UpdateUserRequest
	if err := bind(ctx, &req); err != nil {
		return c.respond(ctx, err)
	}

	changes := repository.UserChanges{Username: req.Username, Email: req.Email}
	if req.Password != nil {
		hash, err := c.hashPassword(*req.Password)
		if err != nil {
			return c.respond(ctx, err)
		}
		changes.Password = &hash
	}

	user, err := c.Repos.Users.Update(ctx.Request().Context(), id, changes)
	if err != nil {
		return c.userWriteError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, dto.NewUserResponse(user))
}

// DeleteUser handles DELETE /api/v2/users/:id
func (c *Controller) DeleteUser(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return c.respond(ctx, err)
	}
	if err := c.Repos.Users.Delete(ctx.Request().Context(), id); err != nil {
		return c.respond(ctx, err)
	}
	c.logger.Info("user deleted", logger.Uint("user_id", id))
	return ctx.NoContent(http.StatusNoContent)
}

// ListUserPlants handles GET /api/v2/users/:id/plants?species=
func (c *Controller) ListUserPlants(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return c.respond(ctx, err)
	}
	opts, err := listOptions(ctx)
	if err != nil {
		return c.respond(ctx, err)
	}

	reqCtx := ctx.Request().Context()
	if _, err := c.Repos.Users.GetByID(reqCtx, id); err != nil {
		return c.respond(ctx, err)
	}
	plants, total, err := c.Repos.Plants.ListByUser(reqCtx, id, ctx.QueryParam("species"), opts)
	if err != nil {
		return c.respond(ctx, err)
	}
	return ctx.JSON(http.StatusOK, NewPaginatedResponse(dto.Map(plants, dto.NewPlantResponse), total, opts))
}

func (c *Controller) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), c.bcryptCost)
	if err != nil {
		return "", errors.New(err).
			Component("api").
			Category(errors.CategoryValidation).
			Build()
	}
	return string(hash), nil
}

// userWriteError keeps the historical 400 for duplicate usernames and emails.
func (c *Controller) userWriteError(ctx echo.Context, err error) error {
	if errors.Is(err, repository.ErrDuplicateKey) {
		return c.HandleError(ctx, err, msgDuplicateUser, http.StatusBadRequest)
	}
	return c.respond(ctx, err)
}
