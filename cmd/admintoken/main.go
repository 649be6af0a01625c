package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/lottoml/lotto-engine/internal/config"
	"github.com/lottoml/lotto-engine/internal/services"
	"github.com/lottoml/lotto-engine/internal/utils"
)

// Prints a bearer token for the /api/v1/admin routes, or with -hash the
// bcrypt hash to set as ADMIN_PASSWORDHASH
func main() {
	_ = godotenv.Load()

	subject := flag.String("subject", "admin", "token subject")
	ttl := flag.Duration("ttl", 0, "token lifetime; defaults to JWT_EXPIRESIN seconds")
	hash := flag.String("hash", "", "print the bcrypt hash of this password and exit")
	flag.Parse()

	if *hash != "" {
		hashed, err := services.HashPassword(*hash)
		if err != nil {
			log.Fatalf("Failed to hash password: %v", err)
		}
		fmt.Println(hashed)
		return
	}

	secret := config.GetEnv("JWT_SECRET", "")
	if secret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}
	lifetime := *ttl
	if lifetime <= 0 {
		lifetime = time.Duration(config.GetEnvAsInt("JWT_EXPIRESIN", 24*60*60)) * time.Second
	}

	token, err := utils.GenerateJWT(*subject, utils.RoleAdmin, secret, lifetime)
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}
	fmt.Println(token)
}
