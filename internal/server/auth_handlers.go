package server

import (
	"log/slog"
	"time"

	"yatube/internal/cache"
	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type loginContext struct {
	Next string `json:"next,omitempty"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// LoginForm handles GET /auth/login/
// @Summary Login form context
// @Tags auth
// @Produce json
// @Param next query string false "Path to return to after login"
// @Success 200 {object} loginContext
// @Router /auth/login/ [get]
func (s *Server) LoginForm(c *fiber.Ctx) error {
	return c.JSON(loginContext{Next: middleware.SafeNext(c.Query("next"))})
}

// Login handles POST /auth/login/
// @Summary User login
// @Description Verifies credentials, sets the token cookie and returns the token.
// @Description With a local next path the response is a redirect there instead.
// @Tags auth
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param request body validation.LoginForm true "Login credentials"
// @Param next query string false "Path to return to after login"
// @Success 200 {object} loginResponse
// @Success 302 "Redirect to next"
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login/ [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var form validation.LoginForm
	if err := c.BodyParser(&form); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.Authenticate(c.UserContext(), form.Username, form.Password)
	if err != nil {
		return respondError(c, err)
	}

	token, claims, err := middleware.IssueToken(s.config.JWTSecret, user.ID)
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  claims.ExpiresAt,
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	next := c.Query("next")
	if next == "" {
		next = c.FormValue("next")
	}
	if next = middleware.SafeNext(next); next != "" {
		return c.Redirect(next, fiber.StatusFound)
	}

	return c.JSON(loginResponse{Token: token, User: user})
}

// Signup handles POST /auth/signup/
// @Summary User signup
// @Tags auth
// @Accept json,x-www-form-urlencoded
// @Param request body validation.SignupForm true "Signup form"
// @Success 302 "Redirect to the index"
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/signup/ [post]
func (s *Server) Signup(c *fiber.Ctx) error {
	var form validation.SignupForm
	if err := c.BodyParser(&form); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.Register(c.UserContext(), form)
	if err != nil {
		return respondError(c, err)
	}

	middleware.Logger.InfoContext(c.UserContext(), "user registered",
		slog.Uint64("user_id", uint64(user.ID)),
		slog.String("username", user.Username),
	)
	return c.Redirect("/", fiber.StatusFound)
}

// Logout handles POST /auth/logout/
// @Summary User logout
// @Description Revokes the current token until it would have expired and clears the cookie
// @Tags auth
// @Produce json
// @Success 200 {object} object{message=string}
// @Router /auth/logout/ [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	ctx := c.UserContext()

	if tokenString := middleware.TokenFromRequest(c, false); tokenString != "" {
		claims, err := middleware.ParseToken(s.config.JWTSecret, tokenString)
		if err == nil && claims.ID != "" && s.redis != nil {
			ttl := time.Until(claims.ExpiresAt)
			if ttl > 0 {
				if err := s.redis.Set(ctx, cache.BlacklistKey(claims.ID), "1", ttl).Err(); err != nil {
					middleware.Logger.WarnContext(ctx, "failed to revoke token", slog.String("error", err.Error()))
				}
			}
		}
	}

	c.ClearCookie(middleware.TokenCookie)
	return c.JSON(fiber.Map{"message": "Logged out"})
}
