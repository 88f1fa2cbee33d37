package server

import (
	"yatube/internal/models"
	"yatube/internal/service"

	"github.com/gofiber/fiber/v2"
)

type feedContext struct {
	Page service.PostPage `json:"page_obj"`
}

type groupsContext struct {
	Groups []models.Group `json:"groups"`
}

// Index handles GET /
// @Summary Global feed
// @Description Every post, newest first. Pages are cached for everyone and may lag new posts briefly.
// @Tags feeds
// @Produce json
// @Param page query int false "Page number"
// @Success 200 {object} feedContext
// @Router / [get]
func (s *Server) Index(c *fiber.Ctx) error {
	page, err := s.feedService.GlobalFeed(c.UserContext(), pageParam(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(feedContext{Page: page})
}

// GroupPosts handles GET /group/:slug/
// @Summary Group feed
// @Tags feeds
// @Produce json
// @Param slug path string true "Group slug"
// @Param page query int false "Page number"
// @Success 200 {object} service.GroupFeed
// @Failure 404 {object} models.ErrorResponse
// @Router /group/{slug}/ [get]
func (s *Server) GroupPosts(c *fiber.Ctx) error {
	feed, err := s.feedService.GroupFeed(c.UserContext(), c.Params("slug"), pageParam(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(feed)
}

// Profile handles GET /profile/:username/
// @Summary Author profile
// @Description The author's posts with follower counts and whether the viewer follows them
// @Tags feeds
// @Produce json
// @Param username path string true "Username"
// @Param page query int false "Page number"
// @Success 200 {object} service.ProfileFeed
// @Failure 404 {object} models.ErrorResponse
// @Router /profile/{username}/ [get]
func (s *Server) Profile(c *fiber.Ctx) error {
	viewerID, _ := s.optionalUserID(c)
	feed, err := s.feedService.ProfileFeed(c.UserContext(), c.Params("username"), viewerID, pageParam(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(feed)
}

// FollowIndex handles GET /follow/
// @Summary Following feed
// @Description Posts by authors the current user follows
// @Tags feeds
// @Produce json
// @Param page query int false "Page number"
// @Success 200 {object} feedContext
// @Router /follow/ [get]
func (s *Server) FollowIndex(c *fiber.Ctx) error {
	page, err := s.feedService.FollowingFeed(c.UserContext(), currentUserID(c), pageParam(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(feedContext{Page: page})
}

// GroupsList handles GET /groups/
// @Summary Groups
// @Tags feeds
// @Produce json
// @Success 200 {object} groupsContext
// @Router /groups/ [get]
func (s *Server) GroupsList(c *fiber.Ctx) error {
	groups, err := s.groupRepo.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(groupsContext{Groups: groups})
}
