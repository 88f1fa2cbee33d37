package server

import (
	"github.com/gofiber/fiber/v2"
)

// InvalidateIndexCache handles POST /admin/cache/index/invalidate
// @Summary Drop cached index pages
// @Tags admin
// @Produce json
// @Success 200 {object} object{message=string}
// @Failure 403 {object} models.ErrorResponse
// @Router /admin/cache/index/invalidate [post]
func (s *Server) InvalidateIndexCache(c *fiber.Ctx) error {
	if err := s.feedService.InvalidateIndex(c.UserContext()); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Index cache cleared"})
}
