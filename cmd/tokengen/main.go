// Command tokengen issues service tokens for the chat-platform client and
// for operators.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"invite-tracker-backend/internal/config"
	"invite-tracker-backend/internal/security"
)

func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	client := flag.String("client", "", "Name of the calling service (required)")
	scopes := flag.String("scopes", string(security.ScopePlatform), "Comma-separated scopes: platform, admin")
	ttl := flag.Duration("ttl", 0, "Token lifetime, e.g. 720h; 0 means no expiry")
	flag.Parse()

	if *client == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var parsed []security.Scope
	for _, s := range strings.Split(*scopes, ",") {
		scope, err := security.ParseScope(strings.TrimSpace(s))
		if err != nil {
			log.Fatalf("Invalid scope %q: %v", s, err)
		}
		parsed = append(parsed, scope)
	}

	tm, err := security.NewTokenManager(cfg.Auth.Secret)
	if err != nil {
		log.Fatalf("Failed to create token manager: %v", err)
	}
	token, err := tm.GenerateServiceToken(*client, parsed, *ttl)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}

	if *ttl > 0 {
		fmt.Fprintf(os.Stderr, "expires %s\n", time.Now().Add(*ttl).UTC().Format(time.RFC3339))
	}
	fmt.Println(token)
}
