//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binary      = "bin/mediagen"
	configFile  = "configs/config.yaml"
	redisName   = "mediagen-redis"
	coverOutput = "coverage.out"
)

// Packages that talk to providers or hold the gateway adapters.
var gatewayPkgs = []string{
	"./internal/module/gateway/...",
	"./internal/adapter/outbound/mediaprovider/...",
}

// Default target when running mage without arguments.
var Default = Build

// Gen groups code generation targets.
type Gen mg.Namespace

// Test groups test targets.
type Test mg.Namespace

// Wire regenerates internal/app/wire_gen.go.
func (Gen) Wire() error {
	fmt.Println("Running wire in internal/app...")
	return sh.RunV("wire", "gen", "./internal/app")
}

// Swag regenerates the OpenAPI document served under /swagger.
func (Gen) Swag() error {
	fmt.Println("Running swag...")
	return sh.RunV("swag", "init",
		"-g", "docs.go",
		"-d", "cmd/server,internal/adapter/inbound/http/media,internal/domain/media",
		"-o", "cmd/server/docs",
		"--outputTypes", "go",
		"--parseInternal",
	)
}

// All runs every generator.
func (Gen) All() {
	mg.SerialDeps(Gen.Wire, Gen.Swag)
}

// Build compiles the gateway binary.
func Build() error {
	mg.Deps(Gen.All)
	fmt.Printf("Building %s...\n", binary)
	return sh.RunV("go", "build", "-trimpath", "-o", binary, "./cmd/server")
}

// Run starts the gateway with configs/config.yaml, or with MEDIAGEN_CONFIG when set.
func Run() error {
	mg.Deps(Build)
	cfg := configFile
	if v := os.Getenv("MEDIAGEN_CONFIG"); v != "" {
		cfg = v
	}
	return sh.RunV(binary, "-config", cfg)
}

// Dev starts a local redis and runs the gateway against it.
func Dev() error {
	mg.SerialDeps(Redis, Build)
	env := map[string]string{
		"MEDIAGEN_REDIS_ENABLED": "true",
		"MEDIAGEN_LOG_LEVEL":     "debug",
	}
	_, err := sh.Exec(env, os.Stdout, os.Stderr, binary, "-config", configFile)
	return err
}

// Redis starts the task-store redis container if it is not already running.
func Redis() error {
	out, err := sh.Output("docker", "ps", "-q", "-f", "name="+redisName)
	if err == nil && strings.TrimSpace(out) != "" {
		return nil
	}
	_ = sh.Run("docker", "rm", "-f", redisName)
	fmt.Println("Starting redis on :6379...")
	return sh.RunV("docker", "run", "-d", "--name", redisName, "-p", "6379:6379", "redis:7-alpine")
}

// RedisStop removes the local redis container.
func RedisStop() error {
	return sh.Run("docker", "rm", "-f", redisName)
}

// Unit runs every package test.
func (Test) Unit() error {
	return sh.RunV("go", "test", "./...")
}

// Gateway runs provider and gateway tests verbosely.
func (Test) Gateway() error {
	return sh.RunV("go", append([]string{"test", "-v", "-count=1"}, gatewayPkgs...)...)
}

// Race runs the internal packages under the race detector.
func (Test) Race() error {
	return sh.RunV("go", "test", "-race", "./internal/...")
}

// Cover writes coverage.out and prints the per-function summary.
func (Test) Cover() error {
	if err := sh.RunV("go", "test", "-coverprofile="+coverOutput, "./..."); err != nil {
		return err
	}
	return sh.RunV("go", "tool", "cover", "-func="+coverOutput)
}

// Lint runs go vet and golangci-lint.
func Lint() error {
	if err := sh.RunV("go", "vet", "./..."); err != nil {
		return err
	}
	return sh.RunV("golangci-lint", "run", "./...")
}

// CI runs generation, lint and coverage in order.
func CI() {
	mg.SerialDeps(Gen.All, Lint, Test.Cover)
}

// Clean removes the binary and coverage output.
func Clean() error {
	if err := sh.Rm("bin"); err != nil {
		return err
	}
	return sh.Rm(coverOutput)
}

// Tools installs wire, swag and golangci-lint.
func Tools() error {
	for _, tool := range []string{
		"github.com/google/wire/cmd/wire@v0.7.0",
		"github.com/swaggo/swag/cmd/swag@v1.16.6",
		"github.com/golangci/golangci-lint/cmd/golangci-lint@latest",
	} {
		if err := sh.RunV("go", "install", tool); err != nil {
			return fmt.Errorf("install %s: %w", tool, err)
		}
	}
	return nil
}
