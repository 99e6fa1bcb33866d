package server

import (
	"forum/internal/notifications"
	"forum/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// GetPosts handles GET /api/post
// @Summary List posts
// @Tags posts
// @Produce json
// @Success 200 {array} models.Post
// @Router /post [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	posts, err := s.postService.List(c.UserContext())
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(posts)
}

// GetPostsByTopic handles GET /api/post/:id/posts
// @Summary List posts in a topic
// @Description An unknown topic yields an empty list
// @Tags posts
// @Produce json
// @Param id path string true "Topic ID"
// @Success 200 {array} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Router /post/{id}/posts [get]
func (s *Server) GetPostsByTopic(c *fiber.Ctx) error {
	topicID, err := s.parseUUID(c, "id")
	if err != nil {
		return nil
	}
	posts, err := s.postService.ListByTopic(c.UserContext(), topicID)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(posts)
}

// GetPost handles GET /api/post/:id
// @Summary Get a post
// @Tags posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} models.Post
// @Failure 404 {object} models.ErrorResponse
// @Router /post/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseUUID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.postService.Get(c.UserContext(), id)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(post)
}

// CreatePost handles POST /api/post
// @Summary Create a post
// @Description author_id defaults to the caller; only elevated roles may post for someone else
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{title=string,content=string,topic_id=string,author_id=string} true "Post"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /post [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	p, _ := principalFrom(c)

	var req struct {
		Title    string    `json:"title"`
		Content  string    `json:"content"`
		TopicID  uuid.UUID `json:"topic_id"`
		AuthorID string    `json:"author_id"`
	}
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	post, err := s.postService.Create(c.UserContext(), p, service.CreatePostInput{
		AuthorID: req.AuthorID,
		TopicID:  req.TopicID,
		Title:    req.Title,
		Content:  req.Content,
	})
	if err != nil {
		return s.respondServiceError(c, err)
	}

	s.notifier.Emit(c.UserContext(), notifications.Event{
		Type:       notifications.PostCreated,
		ResourceID: post.ID.String(),
		ActorID:    p.ID,
		Data:       fiber.Map{"topic_id": post.TopicID, "author_id": post.AuthorID},
	})
	return created(c, "/api/post/"+post.ID.String(), post)
}

// UpdatePost handles PUT /api/post/:id
// @Summary Update a post
// @Description The body id must match the path id
// @Tags posts
// @Accept json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Param request body object{id=string,title=string,content=string,version=int} true "Post"
// @Success 204
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /post/{id} [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	p, _ := principalFrom(c)
	id, err := s.parseUUID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		ID      uuid.UUID `json:"id"`
		Title   string    `json:"title"`
		Content string    `json:"content"`
		Version uint      `json:"version"`
	}
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	post, err := s.postService.Update(c.UserContext(), p, service.UpdatePostInput{
		ID:      id,
		BodyID:  req.ID,
		Title:   req.Title,
		Content: req.Content,
		Version: req.Version,
	})
	if err != nil {
		return s.respondServiceError(c, err)
	}

	s.notifier.Emit(c.UserContext(), notifications.Event{
		Type:       notifications.PostUpdated,
		ResourceID: post.ID.String(),
		ActorID:    p.ID,
		Data:       fiber.Map{"version": post.Version},
	})
	return c.SendStatus(fiber.StatusNoContent)
}

// DeletePost handles DELETE /api/post/:id
// @Summary Delete a post
// @Description Removes the post and its comments
// @Tags posts
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /post/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	p, _ := principalFrom(c)
	id, err := s.parseUUID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.Delete(c.UserContext(), p, id)
	if err != nil {
		return s.respondServiceError(c, err)
	}

	s.notifier.Emit(c.UserContext(), notifications.Event{
		Type:       notifications.PostDeleted,
		ResourceID: post.ID.String(),
		ActorID:    p.ID,
		Data:       fiber.Map{"topic_id": post.TopicID},
	})
	return c.SendStatus(fiber.StatusNoContent)
}
