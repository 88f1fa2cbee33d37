// Package main provides admin management utilities for yatube.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"yatube/internal/cache"
	"yatube/internal/config"
	"yatube/internal/database"
	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/repository"
	"yatube/internal/service"
)

const usageText = `Usage:
  go run ./cmd/admin promote <username>   - Promote user to admin
  go run ./cmd/admin demote <username>    - Demote user from admin
  go run ./cmd/admin list-admins          - List all admins
  go run ./cmd/admin clear-index-cache    - Drop cached index pages
  go run ./cmd/admin token <username>     - Print an access token for a user`

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Println(usageText)
			os.Exit(2)
		}
		log.Fatal(err)
	}
}

var errUsage = errors.New("usage")

func run(args []string) error {
	if len(args) < 1 {
		return errUsage
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx := context.Background()

	if args[0] == "clear-index-cache" {
		return clearIndexCache(ctx, cfg)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	users := service.NewUserService(repository.NewUserRepository(db))

	switch args[0] {
	case "promote", "demote":
		if len(args) < 2 {
			return errUsage
		}
		return setAdmin(ctx, users, args[1], args[0] == "promote")
	case "list-admins":
		return listAdmins(ctx, users)
	case "token":
		if len(args) < 2 {
			return errUsage
		}
		user, err := users.GetByUsername(ctx, args[1])
		if err != nil {
			return err
		}
		token, claims, err := middleware.IssueToken(cfg.JWTSecret, user.ID)
		if err != nil {
			return fmt.Errorf("issue token: %w", err)
		}
		fmt.Printf("%s\n(expires %s)\n", token, claims.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
		return nil
	default:
		fmt.Printf("Unknown command: %s\n", args[0])
		return errUsage
	}
}

func setAdmin(ctx context.Context, users *service.UserService, username string, isAdmin bool) error {
	user, err := users.GetByUsername(ctx, username)
	if err != nil {
		if models.IsNotFound(err) {
			return fmt.Errorf("user %s not found", username)
		}
		return err
	}
	if user.IsAdmin == isAdmin {
		fmt.Printf("User %s (ID: %d) already has is_admin=%t\n", user.Username, user.ID, isAdmin)
		return nil
	}
	if err := users.SetAdmin(ctx, username, isAdmin); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	verb := "promoted"
	if !isAdmin {
		verb = "demoted"
	}
	fmt.Printf("✅ Successfully %s %s (ID: %d)\n", verb, user.Username, user.ID)
	return nil
}

func listAdmins(ctx context.Context, users *service.UserService) error {
	admins, err := users.ListAdmins(ctx)
	if err != nil {
		return fmt.Errorf("fetch admins: %w", err)
	}
	if len(admins) == 0 {
		fmt.Println("No admins found in the system")
		return nil
	}

	fmt.Println("\n📋 Current Admins:")
	fmt.Println("─────────────────────────────────────")
	for _, admin := range admins {
		fmt.Printf("ID: %d | Username: %s | Email: %s\n", admin.ID, admin.Username, admin.Email)
	}
	fmt.Println("─────────────────────────────────────")
	return nil
}

func clearIndexCache(ctx context.Context, cfg *config.Config) error {
	cache.InitRedis(cfg.RedisURL)
	rdb := cache.GetClient()
	if rdb == nil {
		return errors.New("redis is unavailable; the running server keeps its in-memory cache until restart")
	}
	defer func() { _ = rdb.Close() }()

	if err := cache.NewStore(rdb).Invalidate(ctx, cache.IndexPagePrefix+":"); err != nil {
		return fmt.Errorf("invalidate index cache: %w", err)
	}
	fmt.Println("Index cache cleared")
	return nil
}
