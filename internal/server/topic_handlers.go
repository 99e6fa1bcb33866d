package server

import (
	"forum/internal/notifications"
	"forum/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// GetTopics handles GET /api/topic
// @Summary List topics
// @Tags topics
// @Produce json
// @Success 200 {array} models.Topic
// @Router /topic [get]
func (s *Server) GetTopics(c *fiber.Ctx) error {
	topics, err := s.topicService.List(c.UserContext())
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(topics)
}

// GetTopic handles GET /api/topic/:id
// @Summary Get a topic
// @Tags topics
// @Produce json
// @Param id path string true "Topic ID"
// @Success 200 {object} models.Topic
// @Failure 404 {object} models.ErrorResponse
// @Router /topic/{id} [get]
func (s *Server) GetTopic(c *fiber.Ctx) error {
	id, err := s.parseUUID(c, "id")
	if err != nil {
		return nil
	}
	topic, err := s.topicService.Get(c.UserContext(), id)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(topic)
}

// CreateTopic handles POST /api/topic
// @Summary Create a topic
// @Description Admin or Moderator only
// @Tags topics
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{title=string,description=string} true "Topic"
// @Success 201 {object} models.Topic
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /topic [post]
func (s *Server) CreateTopic(c *fiber.Ctx) error {
	p, _ := principalFrom(c)

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	topic, err := s.topicService.Create(c.UserContext(), p, service.CreateTopicInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		return s.respondServiceError(c, err)
	}

	s.notifier.Emit(c.UserContext(), notifications.Event{
		Type:       notifications.TopicCreated,
		ResourceID: topic.ID.String(),
		ActorID:    p.ID,
	})
	return created(c, "/api/topic/"+topic.ID.String(), topic)
}

// UpdateTopic handles PUT /api/topic/:id
// @Summary Update a topic
// @Tags topics
// @Accept json
// @Security BearerAuth
// @Param id path string true "Topic ID"
// @Param request body object{id=string,title=string,description=string,version=int} true "Topic"
// @Success 204
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /topic/{id} [put]
func (s *Server) UpdateTopic(c *fiber.Ctx) error {
	p, _ := principalFrom(c)
	id, err := s.parseUUID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		ID          uuid.UUID `json:"id"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		Version     uint      `json:"version"`
	}
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	topic, err := s.topicService.Update(c.UserContext(), p, service.UpdateTopicInput{
		ID:          id,
		BodyID:      req.ID,
		Title:       req.Title,
		Description: req.Description,
		Version:     req.Version,
	})
	if err != nil {
		return s.respondServiceError(c, err)
	}

	s.notifier.Emit(c.UserContext(), notifications.Event{
		Type:       notifications.TopicUpdated,
		ResourceID: topic.ID.String(),
		ActorID:    p.ID,
		Data:       fiber.Map{"version": topic.Version},
	})
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteTopic handles DELETE /api/topic/:id
// @Summary Delete a topic
// @Description Removes the topic, its posts and their comments
// @Tags topics
// @Security BearerAuth
// @Param id path string true "Topic ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /topic/{id} [delete]
func (s *Server) DeleteTopic(c *fiber.Ctx) error {
	p, _ := principalFrom(c)
	id, err := s.parseUUID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.topicService.Delete(c.UserContext(), p, id); err != nil {
		return s.respondServiceError(c, err)
	}

	s.notifier.Emit(c.UserContext(), notifications.Event{
		Type:       notifications.TopicDeleted,
		ResourceID: id.String(),
		ActorID:    p.ID,
	})
	return c.SendStatus(fiber.StatusNoContent)
}
