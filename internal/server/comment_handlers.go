package server

import (
	"yatube/internal/models"
	"yatube/internal/service"
	"yatube/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// CommentRedirect handles GET /posts/:id/comment/. Comments are only created
// by POST, so this just sends the caller back to the post.
func (s *Server) CommentRedirect(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id", "Post")
	if err != nil {
		return nil
	}
	return c.Redirect(postURL(postID), fiber.StatusFound)
}

// AddComment handles POST /posts/:id/comment/
// @Summary Add comment
// @Tags comments
// @Accept json,x-www-form-urlencoded
// @Param id path int true "Post ID"
// @Param text formData string true "Comment text"
// @Success 302 "Redirect to the post"
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/comment/ [post]
func (s *Server) AddComment(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id", "Post")
	if err != nil {
		return nil
	}

	var form validation.CommentForm
	if c.Is("json") {
		if err := c.BodyParser(&form); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
		}
	} else {
		form.Text = bodyValue(c, "text")
	}

	_, err = s.commentService.CreateComment(c.UserContext(), service.CreateCommentInput{
		UserID: currentUserID(c),
		PostID: postID,
		Text:   form.Text,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Redirect(postURL(postID), fiber.StatusFound)
}
