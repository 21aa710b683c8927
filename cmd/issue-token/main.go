package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/noah-isme/campus-scheduler-api/internal/models"
	"github.com/noah-isme/campus-scheduler-api/internal/service"
	"github.com/noah-isme/campus-scheduler-api/pkg/config"
)

// issue-token prints a signed access token for local testing against the API.
func main() {
	var (
		userID string
		role   string
		ttl    time.Duration
	)

	flag.StringVar(&userID, "user", "", "User id placed in the token claims")
	flag.StringVar(&role, "role", string(models.RoleStudent), "Role claim (STUDENT, INSTRUCTOR or ADMIN)")
	flag.DurationVar(&ttl, "ttl", 0, "Token lifetime; defaults to JWT_EXPIRATION")
	flag.Parse()

	if userID == "" {
		log.Fatal("-user is required")
	}
	userRole := models.UserRole(strings.ToUpper(role))
	switch userRole {
	case models.RoleStudent, models.RoleInstructor, models.RoleAdmin:
	default:
		log.Fatalf("unsupported role %q", role)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	expiry := cfg.JWT.Expiration
	if ttl > 0 {
		expiry = ttl
	}

	tokens := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Expiry: expiry})
	signed, expiresAt, err := tokens.Issue(userID, userRole)
	if err != nil {
		log.Fatalf("failed to sign token: %v", err)
	}
	fmt.Println(signed)
	fmt.Printf("expires at %s\n", expiresAt.Format(time.RFC3339))
}
