package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/Sriram-PR/sitemap-gen/pkg/config"
	"github.com/Sriram-PR/sitemap-gen/pkg/storage"
)

// Environment variables that override config values
const (
	envBaseURL     = "SITEMAP_BASE_URL"
	envDatabaseDSN = "SITEMAP_DATABASE_DSN"
)

// loadConfig loads the optional .env file, then parses the config file and
// applies environment overrides. The result is not validated.
func loadConfig(path, envFile string) (*config.AppConfig, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg config.AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if v := os.Getenv(envBaseURL); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv(envDatabaseDSN); v != "" {
		cfg.Database.DSN = v
	}
	return &cfg, nil
}

// loadAndValidateConfig loads the config and applies defaults, logging warnings
func loadAndValidateConfig(path, envFile string, log *logrus.Logger) (*config.AppConfig, error) {
	appCfg, err := loadConfig(path, envFile)
	if err != nil {
		return nil, err
	}
	warnings, err := appCfg.Validate()
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		log.Warn(w)
	}
	return appCfg, nil
}

// siteKey names the state database of a config, one per site host
func siteKey(appCfg *config.AppConfig) string {
	u, err := url.Parse(appCfg.BaseURL)
	if err != nil {
		return ""
	}
	return u.Host
}

// openStore opens the badger state store of the configured site
func openStore(appCfg *config.AppConfig, log *logrus.Logger) (*storage.BadgerStore, error) {
	return storage.NewBadgerStore(appCfg.StateDir, siteKey(appCfg), log.WithField("component", "state_store"))
}

// logAppConfig logs the effective global configuration
func logAppConfig(appCfg *config.AppConfig, log *logrus.Logger) {
	log.Infof("Global Config: BaseURL:%s, StorePath:%s, StateDir:%s",
		appCfg.BaseURL, appCfg.StorePath, appCfg.StateDir)
	log.Infof("Global Config Chunking: DivideCounts:%d, ChunkTopLevel:%t, Workers:%d",
		appCfg.DivideCounts, appCfg.ChunkTopLevel, appCfg.Workers)
	log.Infof("Global Config Output: EscapeMode:%s, Timezone:%s, TrailingSlash:%t, PruneStale:%t",
		appCfg.EscapeMode, appCfg.Timezone, appCfg.TrailingSlash, appCfg.PruneStale)
	log.Infof("Global Config Source: Driver:%s, Sitemaps:%d", appCfg.Database.Driver, len(appCfg.Sitemaps))
}
