// Command admin-token mints a bearer token for a subject using the signing
// key from the server configuration. Intended for local development and
// operational tooling, not for end-user authentication flows.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/exwaizedd/exam-pass/pkg/auth"
	"github.com/exwaizedd/exam-pass/pkg/config"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	subject := flag.String("subject", "", "Subject to issue the token for (defaults to the configured admin subject)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	sub := *subject
	if sub == "" {
		sub = cfg.Auth.AdminSubject
	}

	token, err := auth.NewTokenService(cfg.Auth).Issue(sub)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to issue token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
