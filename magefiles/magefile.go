//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main provides build targets for the cruds project using Mage.
//
// Usage:
//
//	mage build        Compile cruds binary to bin/
//	mage install      Install cruds to GOPATH/bin
//	mage clean        Remove build artifacts
//	mage serve        Build and run the server on ./.cruds
//	mage test:all     Run all tests
//	mage test:unit    Run tests with -short
//	mage test:race    Run all tests with the race detector
//	mage test:cover   Write coverage.out and print the per-function summary
//	mage lint         Run golangci-lint
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Serve builds the binary and serves the models in ./.cruds/config.yaml,
// creating it on first run.
func Serve() error {
	mg.Deps(Build)
	bin := filepath.Join(binaryDir, binaryName)
	if err := sh.RunV(bin, "init", "--config-dir", ".cruds"); err != nil {
		return err
	}
	args := []string{"serve", "--config-dir", ".cruds"}
	if addr := os.Getenv("CRUDS_ADDR"); addr != "" {
		args = append(args, "--addr", addr)
	}
	return sh.RunV(bin, args...)
}
