package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/HerbHall/assetscout/internal/auth"
)

var errNoSecret = errors.New("auth.jwt_secret is not configured")

// runToken issues an API token signed with the configured secret.
func runToken(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to configuration file")
	subject := fs.String("subject", "", "token subject (required)")
	ttl := fs.Duration("ttl", auth.DefaultTTL, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *subject == "" {
		return errors.New("-subject is required")
	}

	v, logger, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	secret := v.GetString("auth.jwt_secret")
	if secret == "" {
		return errNoSecret
	}

	token, err := auth.NewTokenService([]byte(secret), v.GetString("auth.issuer")).Issue(*subject, *ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, token)
	return nil
}
