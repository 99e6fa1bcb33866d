package server

import (
	"context"
	"encoding/json"
	"strings"

	"forum/internal/models"
	"forum/internal/notifications"
	"forum/internal/policy"
	"forum/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetUsers handles GET /api/user
// @Summary List users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.User
// @Router /user [get]
func (s *Server) GetUsers(c *fiber.Ctx) error {
	users, err := s.userService.List(c.UserContext())
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(users)
}

// GetUser handles GET /api/user/:id. POST on the same path is accepted while
// the legacy_user_read flag is on.
// @Summary Get a user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} models.User
// @Failure 404 {object} models.ErrorResponse
// @Router /user/{id} [get]
func (s *Server) GetUser(c *fiber.Ctx) error {
	user, err := s.userService.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(user)
}

// GetCurrentUser handles GET /api/user/current
// @Summary Get the caller's profile and roles
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 401 {object} models.ErrorResponse
// @Router /user/current [get]
func (s *Server) GetCurrentUser(c *fiber.Ctx) error {
	p, _ := principalFrom(c)
	user, err := s.userService.Get(c.UserContext(), p.ID)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(user)
}

// UpdateUser handles PUT /api/user/:id
// @Summary Update a user profile
// @Description Users may edit themselves; Admin and Moderator may edit anyone
// @Tags users
// @Accept json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body object{id=string,username=string,email=string,version=int} true "User"
// @Success 204
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /user/{id} [put]
func (s *Server) UpdateUser(c *fiber.Ctx) error {
	p, _ := principalFrom(c)

	var req struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
		Version  uint   `json:"version"`
	}
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	if _, err := s.userService.Update(c.UserContext(), p, service.UpdateUserInput{
		ID:       c.Params("id"),
		BodyID:   req.ID,
		Username: req.Username,
		Email:    req.Email,
		Version:  req.Version,
	}); err != nil {
		return s.respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddUserRole handles POST /api/user/:id/role
// @Summary Grant a role
// @Description Body is either a JSON string or {"role": "..."}
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body object{role=string} true "Role"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /user/{id}/role [post]
func (s *Server) AddUserRole(c *fiber.Ctx) error {
	return s.changeUserRole(c, "added", s.userService.AddRole)
}

// RemoveUserRole handles DELETE /api/user/:id/role
// @Summary Revoke a role
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body object{role=string} true "Role"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /user/{id}/role [delete]
func (s *Server) RemoveUserRole(c *fiber.Ctx) error {
	return s.changeUserRole(c, "removed", s.userService.RemoveRole)
}

type roleChange func(ctx context.Context, p policy.Principal, userID, role string) (*models.User, error)

func (s *Server) changeUserRole(c *fiber.Ctx, change string, apply roleChange) error {
	p, _ := principalFrom(c)
	role, ok := parseRoleBody(c.Body())
	if !ok {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Role name is required"))
	}

	user, err := apply(c.UserContext(), p, c.Params("id"), role)
	if err != nil {
		return s.respondServiceError(c, err)
	}

	s.notifier.Emit(c.UserContext(), notifications.Event{
		Type:       notifications.UserRolesChanged,
		ResourceID: user.ID,
		ActorID:    p.ID,
		Data:       fiber.Map{"role": role, "change": change, "roles": user.RoleNames()},
	})
	return c.JSON(user)
}

// parseRoleBody accepts a bare JSON string or an object with a role field.
func parseRoleBody(body []byte) (string, bool) {
	var name string
	if err := json.Unmarshal(body, &name); err == nil {
		name = strings.TrimSpace(name)
		return name, name != ""
	}
	var obj struct {
		Role string `json:"role"`
	}
	if err := json.Unmarshal(body, &obj); err != nil {
		return "", false
	}
	name = strings.TrimSpace(obj.Role)
	return name, name != ""
}

// GetRoles handles GET /api/roles
// @Summary List roles
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Role
// @Router /roles [get]
func (s *Server) GetRoles(c *fiber.Ctx) error {
	roles, err := s.userService.ListRoles(c.UserContext())
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(roles)
}
