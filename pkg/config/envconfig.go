// Package config loads the updater's configuration: environment variables
// mirroring the worker's D2S_* settings, plus the viper-loaded schedule file.
package config

import (
	"fmt"
	"log"
	"net"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type EnvConfig struct {
	Environment     string `envconfig:"ENVIRONMENT" default:"development"`
	Namespace       string `envconfig:"D2S_NAMESPACE" default:"dist-git-to-source-git"`
	WorkerImage     string `envconfig:"D2S_WORKER_IMAGE" default:"quay.io/packit/dist2src:latest"`
	RedisAddr       string `envconfig:"D2S_REDIS_ADDR" default:"localhost:6379"`
	RedisPassword   string `envconfig:"D2S_REDIS_PASSWORD"`
	RedisDB         int    `envconfig:"D2S_REDIS_DB" default:"0"`
	APIPort         string `envconfig:"D2S_API_PORT" default:"8080"`
	DistGitHost     string `envconfig:"D2S_DIST_GIT_HOST" default:"git.centos.org"`
	SrcGitHost      string `envconfig:"D2S_SRC_GIT_HOST" default:"git.stg.centos.org"`
	SrcGitToken     string `envconfig:"D2S_SRC_GIT_TOKEN"`
	BranchesWatched string `envconfig:"D2S_BRANCHES_WATCHED" default:"c8s,c8"`
	// DeployerToken is the expected value for the advisory token check.
	DeployerToken string `envconfig:"D2S_DEPLOYER_TOKEN"`
}

// IsDev reports whether the config targets a development environment.
func (c *EnvConfig) IsDev() bool {
	return c.Environment == "development"
}

// Branches splits BranchesWatched into individual branch names.
func (c *EnvConfig) Branches() []string {
	parts := strings.Split(c.BranchesWatched, ",")
	branches := make([]string, 0, len(parts))
	for _, p := range parts {
		if b := strings.TrimSpace(p); b != "" {
			branches = append(branches, b)
		}
	}
	return branches
}

// ValidateEnv loads and validates configuration from the environment.
func ValidateEnv() (*EnvConfig, error) {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded .env file")
	}

	var cfg EnvConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var errors []string

	if _, _, err := net.SplitHostPort(cfg.RedisAddr); err != nil {
		errors = append(errors, "  D2S_REDIS_ADDR must be host:port")
	}
	if len(cfg.Branches()) == 0 {
		errors = append(errors, "  D2S_BRANCHES_WATCHED must name at least one branch")
	}
	if cfg.Namespace == "" {
		errors = append(errors, "  D2S_NAMESPACE must not be empty")
	}

	if len(errors) > 0 {
		return nil, fmt.Errorf("environment validation failed:\n%s", strings.Join(errors, "\n"))
	}

	return &cfg, nil
}

// MaskSecret hides most of a secret for log output.
func MaskSecret(secret string) string {
	if secret == "" {
		return "<not set>"
	}
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}

// Print writes the effective configuration through fmtr, masking secrets.
func (c *EnvConfig) Print(fmtr func(string, ...interface{})) {
	fmtr("Configuration:\n")
	fmtr("  Environment: %s\n", c.Environment)
	fmtr("  Namespace: %s\n", c.Namespace)
	fmtr("  Worker image: %s\n", c.WorkerImage)
	fmtr("  Redis: %s (db %d)\n", c.RedisAddr, c.RedisDB)
	fmtr("  API port: %s\n", c.APIPort)
	fmtr("  Dist-git host: %s\n", c.DistGitHost)
	fmtr("  Source-git host: %s\n", c.SrcGitHost)
	fmtr("  Source-git token: %s\n", MaskSecret(c.SrcGitToken))
	fmtr("  Watched branches: %s\n", strings.Join(c.Branches(), ", "))
	fmtr("  Deployer token: %s\n", MaskSecret(c.DeployerToken))
}
