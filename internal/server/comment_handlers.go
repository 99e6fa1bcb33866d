package server

import (
	"forum/internal/notifications"
	"forum/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// GetComments handles GET /api/comment
// @Summary List comments
// @Tags comments
// @Produce json
// @Success 200 {array} models.Comment
// @Router /comment [get]
func (s *Server) GetComments(c *fiber.Ctx) error {
	comments, err := s.commentService.List(c.UserContext())
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(comments)
}

// GetCommentsByPost handles GET /api/comment/:id/comments
// @Summary List comments on a post
// @Tags comments
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {array} models.Comment
// @Router /comment/{id}/comments [get]
func (s *Server) GetCommentsByPost(c *fiber.Ctx) error {
	postID, err := s.parseUUID(c, "id")
	if err != nil {
		return nil
	}
	comments, err := s.commentService.ListByPost(c.UserContext(), postID)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(comments)
}

// GetComment handles GET /api/comment/:id
// @Summary Get a comment
// @Tags comments
// @Produce json
// @Param id path string true "Comment ID"
// @Success 200 {object} models.Comment
// @Failure 404 {object} models.ErrorResponse
// @Router /comment/{id} [get]
func (s *Server) GetComment(c *fiber.Ctx) error {
	id, err := s.parseUUID(c, "id")
	if err != nil {
		return nil
	}
	comment, err := s.commentService.Get(c.UserContext(), id)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(comment)
}

// CreateComment handles POST /api/comment
// @Summary Create a comment
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{content=string,post_id=string,author_id=string} true "Comment"
// @Success 201 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comment [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	p, _ := principalFrom(c)

	var req struct {
		Content  string    `json:"content"`
		PostID   uuid.UUID `json:"post_id"`
		AuthorID string    `json:"author_id"`
	}
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	comment, err := s.commentService.Create(c.UserContext(), p, service.CreateCommentInput{
		AuthorID: req.AuthorID,
		PostID:   req.PostID,
		Content:  req.Content,
	})
	if err != nil {
		return s.respondServiceError(c, err)
	}

	s.notifier.Emit(c.UserContext(), notifications.Event{
		Type:       notifications.CommentCreated,
		ResourceID: comment.ID.String(),
		ActorID:    p.ID,
		Data:       fiber.Map{"post_id": comment.PostID, "author_id": comment.AuthorID},
	})
	return created(c, "/api/comment/"+comment.ID.String(), comment)
}

// UpdateComment handles PUT /api/comment/:id
// @Summary Update a comment
// @Tags comments
// @Accept json
// @Security BearerAuth
// @Param id path string true "Comment ID"
// @Param request body object{id=string,content=string,version=int} true "Comment"
// @Success 204
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comment/{id} [put]
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	p, _ := principalFrom(c)
	id, err := s.parseUUID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		ID      uuid.UUID `json:"id"`
		Content string    `json:"content"`
		Version uint      `json:"version"`
	}
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	comment, err := s.commentService.Update(c.UserContext(), p, service.UpdateCommentInput{
		ID:      id,
		BodyID:  req.ID,
		Content: req.Content,
		Version: req.Version,
	})
	if err != nil {
		return s.respondServiceError(c, err)
	}

	s.notifier.Emit(c.UserContext(), notifications.Event{
		Type:       notifications.CommentUpdated,
		ResourceID: comment.ID.String(),
		ActorID:    p.ID,
		Data:       fiber.Map{"post_id": comment.PostID, "version": comment.Version},
	})
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteComment handles DELETE /api/comment/:id
// @Summary Delete a comment
// @Tags comments
// @Security BearerAuth
// @Param id path string true "Comment ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comment/{id} [delete]
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	p, _ := principalFrom(c)
	id, err := s.parseUUID(c, "id")
	if err != nil {
		return nil
	}

	comment, err := s.commentService.Delete(c.UserContext(), p, id)
	if err != nil {
		return s.respondServiceError(c, err)
	}

	s.notifier.Emit(c.UserContext(), notifications.Event{
		Type:       notifications.CommentDeleted,
		ResourceID: comment.ID.String(),
		ActorID:    p.ID,
		Data:       fiber.Map{"post_id": comment.PostID},
	})
	return c.SendStatus(fiber.StatusNoContent)
}
