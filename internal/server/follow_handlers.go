package server

import (
	"context"
	"errors"

	"yatube/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ProfileFollow handles POST /profile/:username/follow/
// @Summary Follow author
// @Description Idempotent. Following yourself is ignored.
// @Tags follows
// @Param username path string true "Username"
// @Success 302 "Redirect to the profile"
// @Failure 404 {object} models.ErrorResponse
// @Router /profile/{username}/follow/ [post]
func (s *Server) ProfileFollow(c *fiber.Ctx) error {
	return s.changeFollow(c, s.followService.Follow)
}

// ProfileUnfollow handles POST /profile/:username/unfollow/
// @Summary Unfollow author
// @Description Idempotent. Unfollowing yourself is ignored.
// @Tags follows
// @Param username path string true "Username"
// @Success 302 "Redirect to the profile"
// @Failure 404 {object} models.ErrorResponse
// @Router /profile/{username}/unfollow/ [post]
func (s *Server) ProfileUnfollow(c *fiber.Ctx) error {
	return s.changeFollow(c, s.followService.Unfollow)
}

func (s *Server) changeFollow(c *fiber.Ctx, change func(ctx context.Context, userID uint, username string) (bool, error)) error {
	username := c.Params("username")

	_, err := change(c.UserContext(), currentUserID(c), username)
	if err != nil && !errors.Is(err, service.ErrSelfFollow) && !errors.Is(err, service.ErrSelfUnfollow) {
		return respondError(c, err)
	}

	return c.Redirect(profileURL(username), fiber.StatusFound)
}
