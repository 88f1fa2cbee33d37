package server

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"yatube/internal/models"
	"yatube/internal/service"
	"yatube/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// postFormContext is the document the create and edit pages are built from.
type postFormContext struct {
	Form   validation.PostForm `json:"form"`
	Groups []models.Group      `json:"groups"`
	Post   *models.Post        `json:"post,omitempty"`
	IsEdit bool                `json:"is_edit"`
}

// postDetailContext is a post with its comments and an empty comment form.
type postDetailContext struct {
	Post     *models.Post           `json:"post"`
	Comments []models.Comment       `json:"comments"`
	Form     validation.CommentForm `json:"form"`
}

// PostDetail handles GET /posts/:id/
// @Summary Post detail
// @Description A post with its comments, oldest first
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} postDetailContext
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/ [get]
func (s *Server) PostDetail(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id, err := s.parseID(c, "id", "Post")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPost(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	comments, err := s.commentService.ListComments(ctx, id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(postDetailContext{Post: post, Comments: comments})
}

// CreatePostForm handles GET /create/
// @Summary New post form
// @Tags posts
// @Produce json
// @Success 200 {object} postFormContext
// @Router /create/ [get]
func (s *Server) CreatePostForm(c *fiber.Ctx) error {
	groups, err := s.groupRepo.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(postFormContext{Groups: groups})
}

// CreatePost handles POST /create/
// @Summary Create post
// @Description Accepts JSON, urlencoded or multipart forms; multipart may carry an image
// @Tags posts
// @Accept json,x-www-form-urlencoded,mpfd
// @Param text formData string true "Post text"
// @Param group formData int false "Group ID"
// @Param image formData file false "Post image"
// @Success 302 "Redirect to the author's profile"
// @Failure 400 {object} models.ErrorResponse
// @Router /create/ [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	form, image, err := parsePostForm(c)
	if err != nil {
		return respondError(c, err)
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		AuthorID: currentUserID(c),
		Text:     form.Text,
		GroupID:  form.Group,
		Image:    image,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Redirect(profileURL(post.Author.Username), fiber.StatusFound)
}

// EditPostForm handles GET /posts/:id/edit/
// @Summary Edit post form
// @Description Only the author may edit; anyone else is sent back to the post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} postFormContext
// @Success 302 "Not the author"
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/edit/ [get]
func (s *Server) EditPostForm(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id, err := s.parseID(c, "id", "Post")
	if err != nil {
		return nil
	}

	post, err := s.postService.EditablePost(ctx, currentUserID(c), id)
	if errors.Is(err, service.ErrNotAuthor) {
		return c.Redirect(postURL(id), fiber.StatusFound)
	}
	if err != nil {
		return respondError(c, err)
	}

	groups, err := s.groupRepo.List(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(postFormContext{
		Form:   validation.PostForm{Text: post.Text, Group: post.GroupID},
		Groups: groups,
		Post:   post,
		IsEdit: true,
	})
}

// EditPost handles POST /posts/:id/edit/
// @Summary Update post
// @Tags posts
// @Accept json,x-www-form-urlencoded,mpfd
// @Param id path int true "Post ID"
// @Param text formData string true "Post text"
// @Param group formData int false "Group ID, empty to remove the group"
// @Param image formData file false "Replacement image"
// @Success 302 "Redirect to the post"
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/edit/ [post]
func (s *Server) EditPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id", "Post")
	if err != nil {
		return nil
	}

	ctx := c.UserContext()
	if _, err := s.postService.EditablePost(ctx, currentUserID(c), id); err != nil {
		if errors.Is(err, service.ErrNotAuthor) {
			return c.Redirect(postURL(id), fiber.StatusFound)
		}
		return respondError(c, err)
	}

	form, image, err := parsePostForm(c)
	if err != nil {
		return respondError(c, err)
	}

	_, err = s.postService.UpdatePost(ctx, service.UpdatePostInput{
		UserID:  currentUserID(c),
		PostID:  id,
		Text:    form.Text,
		GroupID: form.Group,
		Image:   image,
	})
	if err != nil && !errors.Is(err, service.ErrNotAuthor) {
		return respondError(c, err)
	}

	return c.Redirect(postURL(id), fiber.StatusFound)
}

// parsePostForm reads a post form from a JSON body or from form fields.
// Multipart requests may carry an image file under "image".
func parsePostForm(c *fiber.Ctx) (validation.PostForm, *service.UploadImageInput, error) {
	var form validation.PostForm
	if c.Is("json") {
		if err := c.BodyParser(&form); err != nil {
			return form, nil, models.NewValidationError("Invalid request body")
		}
		return form, nil, nil
	}

	form.Text = bodyValue(c, "text")
	if raw := strings.TrimSpace(bodyValue(c, "group")); raw != "" {
		groupID, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || groupID == 0 {
			return form, nil, models.NewFieldValidationError(map[string]string{
				"group": "Select a valid choice. That choice is not one of the available choices.",
			})
		}
		id := uint(groupID)
		form.Group = &id
	}

	if !strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		return form, nil, nil
	}
	file, err := c.FormFile("image")
	if err != nil || (file.Filename == "" && file.Size == 0) {
		// No file chosen.
		return form, nil, nil
	}
	f, err := file.Open()
	if err != nil {
		return form, nil, models.NewInternalError(err)
	}
	defer func() { _ = f.Close() }()
	content, err := io.ReadAll(f)
	if err != nil {
		return form, nil, models.NewInternalError(err)
	}

	return form, &service.UploadImageInput{
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Content:     content,
	}, nil
}
