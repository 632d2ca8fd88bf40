package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/sitemap-gen/pkg/config"
	"github.com/Sriram-PR/sitemap-gen/pkg/orchestrate"
	"github.com/Sriram-PR/sitemap-gen/pkg/storage"
)

const (
	serverName    = "sitemap-gen"
	serverVersion = "1.0.0"
)

// ServerConfig holds configuration for the MCP server
type ServerConfig struct {
	AppConfig  *config.AppConfig
	ConfigPath string
	Generator  *orchestrate.Generator
	Store      storage.StateStore // Optional; run history tools need it
	Transport  string             // "stdio" or "sse"
	Port       int
	Logger     *logrus.Logger
}

// Server exposes sitemap generation as MCP tools
type Server struct {
	mcpServer  *server.MCPServer
	cfg        *ServerConfig
	log        *logrus.Entry
	jobManager *JobManager
}

// NewServer creates a new MCP server instance
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg.AppConfig == nil {
		return nil, fmt.Errorf("AppConfig is required")
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("Generator is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	mcpServer := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithLogging(),
	)

	s := &Server{
		mcpServer:  mcpServer,
		cfg:        cfg,
		log:        cfg.Logger.WithField("component", "mcp"),
		jobManager: NewJobManager(),
	}
	s.registerTools()
	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	tools := []server.ServerTool{
		{
			Tool: mcp.NewTool("list_sitemaps",
				mcp.WithDescription("List the configured sitemap definitions and the files each one produced in the last run"),
			),
			Handler: s.handleListSitemaps,
		},
		{
			Tool: mcp.NewTool("generate_sitemaps",
				mcp.WithDescription("Start a background run that regenerates every sitemap and the sitemap index. Returns immediately with a job ID."),
			),
			Handler: s.handleGenerateSitemaps,
		},
		{
			Tool: mcp.NewTool("get_job_status",
				mcp.WithDescription("Get the status of a generation job"),
				mcp.WithString("job_id",
					mcp.Required(),
					mcp.Description("The job ID returned by generate_sitemaps"),
				),
			),
			Handler: s.handleGetJobStatus,
		},
		{
			Tool: mcp.NewTool("cancel_job",
				mcp.WithDescription("Cancel a running generation job. Files already written stay in place and no index is written."),
				mcp.WithString("job_id",
					mcp.Required(),
					mcp.Description("The job ID returned by generate_sitemaps"),
				),
			),
			Handler: s.handleCancelJob,
		},
		{
			Tool: mcp.NewTool("get_run",
				mcp.WithDescription("Get a stored generation run record (the last run by default)"),
				mcp.WithString("run_id",
					mcp.Description("Run ID (optional, defaults to the last run)"),
				),
				mcp.WithBoolean("include_files",
					mcp.Description("Include the per-file details of the run"),
				),
			),
			Handler: s.handleGetRun,
		},
		{
			Tool: mcp.NewTool("get_sitemap_file",
				mcp.WithDescription("Get the tracked state of one sitemap file, e.g. sitemap_pages.xml"),
				mcp.WithString("name",
					mcp.Required(),
					mcp.Description("File name inside the store directory"),
				),
			),
			Handler: s.handleGetSitemapFile,
		},
	}
	s.mcpServer.AddTools(tools...)
	s.log.Infof("Registered %d MCP tools", len(tools))
}

// Run starts the MCP server with the configured transport
func (s *Server) Run() error {
	switch s.cfg.Transport {
	case "stdio":
		s.log.Info("Starting MCP server with stdio transport")
		return server.ServeStdio(s.mcpServer)
	case "sse":
		addr := fmt.Sprintf(":%d", s.cfg.Port)
		s.log.Infof("Starting MCP server with SSE transport on %s", addr)
		sseServer := server.NewSSEServer(s.mcpServer)
		return sseServer.Start(addr)
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio, sse)", s.cfg.Transport)
	}
}

// Shutdown cancels the running job, if any
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down MCP server...")
	s.jobManager.CancelAll()
	return nil
}
