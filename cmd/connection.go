// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/Thermoquad/fieldgate/internal/config"
	"github.com/Thermoquad/fieldgate/internal/radio"
)

// EnvLinkPassword holds the WebSocket link password
const EnvLinkPassword = "FIELDGATE_LINK_PASSWORD"

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	if pw := os.Getenv(EnvLinkPassword); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// linkOptions merges the settings file with command line overrides
func linkOptions(cfg *config.Settings) (radio.LinkOptions, error) {
	opts := radio.LinkOptions{
		Link:          cfg.RadioLink,
		BaudRate:      cfg.RadioBaudRate,
		Username:      linkUsername,
		SkipTLSVerify: linkNoSSLVerify,
	}
	if linkName != "" {
		opts.Link = linkName
	}
	if baudRate > 0 {
		opts.BaudRate = baudRate
	}

	if radio.IsWebSocketLink(opts.Link) && opts.Username != "" {
		password, err := GetPassword()
		if err != nil {
			return radio.LinkOptions{}, err
		}
		opts.Password = password
	}
	return opts, nil
}

// OpenConnection opens the radio bridge link described by cfg and flags
func OpenConnection(ctx context.Context, cfg *config.Settings) (radio.Connection, string, error) {
	opts, err := linkOptions(cfg)
	if err != nil {
		return nil, "", err
	}
	return radio.OpenLink(ctx, opts)
}

// loadSettings loads the settings file, falling back to the defaults when it
// does not exist. Diagnostic commands only need the radio settings.
func loadSettings() (*config.Settings, error) {
	cfg, err := config.Load(configPath)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, config.ErrNotFound) {
		return config.Default(), nil
	}
	return nil, err
}
