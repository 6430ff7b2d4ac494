// Command admin-token mints a bearer token for the admin dashboard.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/groom-booking/backend/internal/auth"
)

func main() {
	sub := flag.String("sub", "admin", "Token subject")
	ttl := flag.Duration("ttl", 24*time.Hour, "Token lifetime")
	flag.Parse()

	_ = godotenv.Load(".env")

	secret := os.Getenv("ADMIN_JWT_SECRET")
	if secret == "" {
		log.Fatal("ADMIN_JWT_SECRET must be set")
	}

	token, err := auth.CreateToken(secret, *sub, auth.RoleAdmin, *ttl)
	if err != nil {
		log.Fatalf("Failed to create token: %v", err)
	}
	fmt.Println(token)
}
