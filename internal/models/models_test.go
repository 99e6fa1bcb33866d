package models

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_WrapsAndMatches(t *testing.T) {
	cause := errors.New("version mismatch")
	err := NewConflictError("Post", "p1", cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, HasCode(err, CodeConflict))
	assert.False(t, HasCode(err, CodeNotFound))
	assert.Contains(t, err.Error(), "modified concurrently")
	assert.False(t, HasCode(errors.New("plain"), CodeConflict))
}

func TestNewNotFoundError_Message(t *testing.T) {
	err := NewNotFoundError("Topic", "t1")
	assert.Equal(t, "Topic with ID t1 not found", err.Error())
	assert.Equal(t, CodeNotFound, err.Code)
}

func TestRespondWithError(t *testing.T) {
	app := fiber.New()
	app.Get("/app", func(c *fiber.Ctx) error {
		return RespondWithError(c, fiber.StatusInternalServerError, NewInternalError(errors.New("db down")))
	})
	app.Get("/plain", func(c *fiber.Ctx) error {
		return RespondWithError(c, fiber.StatusBadRequest, errors.New("bad"))
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/app", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Internal server error","code":"INTERNAL_ERROR","details":"db down"}`, string(body))

	resp, err = app.Test(httptest.NewRequest("GET", "/plain", nil))
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"error":"bad"}`, string(body))
}

func TestUser_RoleNames(t *testing.T) {
	u := &User{Roles: []Role{{Name: RoleUser}, {Name: RoleAdmin}}}
	assert.Equal(t, []string{RoleUser, RoleAdmin}, u.RoleNames())
	assert.Empty(t, (&User{}).RoleNames())
	// Callable on values returned straight from a decoder or map lookup.
	assert.Equal(t, []string{RoleModerator}, User{Roles: []Role{{Name: RoleModerator}}}.RoleNames())
	assert.Empty(t, User{}.RoleNames())
}

func TestBeforeCreate_AssignsIDs(t *testing.T) {
	p := &Post{}
	require.NoError(t, p.BeforeCreate(nil))
	assert.NotEqual(t, uuid.Nil, p.ID)

	fixed := uuid.New()
	c := &Comment{ID: fixed}
	require.NoError(t, c.BeforeCreate(nil))
	assert.Equal(t, fixed, c.ID)

	u := &User{}
	require.NoError(t, u.BeforeCreate(nil))
	_, err := uuid.Parse(u.ID)
	assert.NoError(t, err)
}
