package main

import (
	"context"
	"fmt"
	"io"
	"time"

	applog "github.com/Sriram-PR/sitemap-gen/pkg/log"
	"github.com/Sriram-PR/sitemap-gen/pkg/mcp"
	"github.com/Sriram-PR/sitemap-gen/pkg/orchestrate"
	"github.com/Sriram-PR/sitemap-gen/pkg/source"
)

// doMcpServer is the testable implementation of the MCP server
func doMcpServer(configPath, envFile, transport string, port int, logLevel string, stdout, stderr io.Writer) int {
	log := applog.NewLogger(stderr, logLevel) // MCP protocol uses stdout, logs go to stderr

	if transport != "stdio" && transport != "sse" {
		fmt.Fprintf(stderr, "Error: unknown transport: %s (supported: stdio, sse)\n", transport)
		return 1
	}

	appCfg, err := loadAndValidateConfig(configPath, envFile, log)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return 1
	}

	src, err := source.Open(appCfg.Database.Driver, appCfg.Database.DSN)
	if err != nil {
		fmt.Fprintf(stderr, "Error opening record source: %v\n", err)
		return 1
	}
	if c, ok := src.(source.Closer); ok {
		defer c.Close()
	}

	store, err := openStore(appCfg, log)
	if err != nil {
		fmt.Fprintf(stderr, "Error opening state store: %v\n", err)
		return 1
	}
	defer store.Close()

	gcCtx, cancelGC := context.WithCancel(context.Background())
	defer cancelGC()
	go store.RunGC(gcCtx, gcInterval)

	serverCfg := &mcp.ServerConfig{
		AppConfig:  appCfg,
		ConfigPath: configPath,
		Generator:  orchestrate.NewGenerator(appCfg, src, store, log),
		Store:      store,
		Transport:  transport,
		Port:       port,
		Logger:     log,
	}

	server, err := mcp.NewServer(serverCfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error creating MCP server: %v\n", err)
		return 1
	}

	log.Infof("Starting MCP server (transport: %s)", transport)

	runErr := server.Run()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)

	if runErr != nil {
		fmt.Fprintf(stderr, "MCP server error: %v\n", runErr)
		return 1
	}
	return 0
}
