package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Sriram-PR/sitemap-gen/pkg/config"
	"github.com/Sriram-PR/sitemap-gen/pkg/models"
	"github.com/Sriram-PR/sitemap-gen/pkg/orchestrate"
	"github.com/Sriram-PR/sitemap-gen/pkg/utils"
)

// handleListSitemaps handles the list_sitemaps tool
func (s *Server) handleListSitemaps(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	appCfg := s.cfg.AppConfig

	// Tracked files grouped by the definition that produced them
	filesByDef := make(map[string][]string)
	if s.cfg.Store != nil {
		files, err := s.cfg.Store.ListFiles()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to list tracked files: %v", err)), nil
		}
		for _, f := range files {
			filesByDef[f.Definition] = append(filesByDef[f.Definition], f.Name)
		}
	}

	sitemaps := make([]map[string]interface{}, 0, len(appCfg.Sitemaps))
	for _, def := range appCfg.Sitemaps {
		info := map[string]interface{}{
			"postfix":     def.Postfix,
			"table":       def.Query.Table,
			"route":       def.Query.Route,
			"change_freq": config.GetEffectiveChangeFreq(def, *appCfg),
			"priority":    config.GetEffectivePriority(def, *appCfg),
		}
		if def.HasChildren() {
			info["child_table"] = def.ChildQuery.Table
			info["child_route"] = def.ChildQuery.Route
		}
		if files := filesByDef[def.Postfix]; len(files) > 0 {
			info["files"] = files
		}
		sitemaps = append(sitemaps, info)
	}

	result := map[string]interface{}{
		"sitemaps":       sitemaps,
		"total_sitemaps": len(sitemaps),
		"index_url":      s.cfg.Generator.IndexURL(),
		"store_path":     appCfg.StorePath,
		"config_path":    s.cfg.ConfigPath,
	}
	if job := s.jobManager.ActiveJob(); job != nil {
		result["running_job_id"] = job.ID
	}

	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleGenerateSitemaps handles the generate_sitemaps tool
func (s *Server) handleGenerateSitemaps(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	job, created := s.jobManager.CreateJob()
	if !created {
		result := map[string]interface{}{
			"status":  "already_running",
			"message": "A generation run is already in progress",
			"job_id":  job.ID,
		}
		return mcp.NewToolResultText(formatJSON(result)), nil
	}

	go s.runGenerateJob(job.ID)

	result := map[string]interface{}{
		"status":  "started",
		"message": "Sitemap generation started",
		"job_id":  job.ID,
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleGetJobStatus handles the get_job_status tool
func (s *Server) handleGetJobStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID := request.GetString("job_id", "")
	if jobID == "" {
		return mcp.NewToolResultError("job_id parameter is required"), nil
	}

	job := s.jobManager.GetJob(jobID)
	if job == nil {
		return mcp.NewToolResultError(fmt.Sprintf("job '%s' not found", jobID)), nil
	}

	result := map[string]interface{}{
		"job_id":     job.ID,
		"status":     job.Status,
		"started_at": job.StartedAt.Format(time.RFC3339),
		"file_count": job.Files,
		"entries":    job.Entries,
	}
	if job.RunID != "" {
		result["run_id"] = job.RunID
	}
	if job.IndexURL != "" {
		result["index_url"] = job.IndexURL
	}
	if !job.CompletedAt.IsZero() {
		result["completed_at"] = job.CompletedAt.Format(time.RFC3339)
		result["duration_seconds"] = job.CompletedAt.Sub(job.StartedAt).Seconds()
	}
	if job.ErrorMessage != "" {
		result["error_message"] = job.ErrorMessage
	}

	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleCancelJob handles the cancel_job tool
func (s *Server) handleCancelJob(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID := request.GetString("job_id", "")
	if jobID == "" {
		return mcp.NewToolResultError("job_id parameter is required"), nil
	}
	if s.jobManager.GetJob(jobID) == nil {
		return mcp.NewToolResultError(fmt.Sprintf("job '%s' not found", jobID)), nil
	}

	result := map[string]interface{}{
		"job_id":    jobID,
		"cancelled": s.jobManager.CancelJob(jobID),
		"status":    s.jobManager.GetJob(jobID).Status,
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleGetRun handles the get_run tool
func (s *Server) handleGetRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.cfg.Store == nil {
		return mcp.NewToolResultError("run history is not available without a state store"), nil
	}

	runID := request.GetString("run_id", "")
	var (
		run   *models.RunRecord
		found bool
		err   error
	)
	if runID != "" {
		run, found, err = s.cfg.Store.GetRun(runID)
	} else {
		run, found, err = s.cfg.Store.LastRun()
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read run: %v", err)), nil
	}
	if !found {
		if runID != "" {
			return mcp.NewToolResultError(fmt.Sprintf("run '%s' not found", runID)), nil
		}
		return mcp.NewToolResultError("no generation run recorded yet"), nil
	}

	result := runSummary(run)
	if request.GetBool("include_files", false) {
		result["files"] = run.Files
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleGetSitemapFile handles the get_sitemap_file tool
func (s *Server) handleGetSitemapFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := request.GetString("name", "")
	if name == "" {
		return mcp.NewToolResultError("name parameter is required"), nil
	}
	if s.cfg.Store == nil {
		return mcp.NewToolResultError("file tracking is not available without a state store"), nil
	}

	rec, found, err := s.cfg.Store.GetFile(name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read file record: %v", err)), nil
	}
	if !found {
		return mcp.NewToolResultError(fmt.Sprintf("sitemap file '%s' is not tracked", name)), nil
	}

	result := map[string]interface{}{
		"name":       rec.Name,
		"url":        rec.URL,
		"definition": rec.Definition,
		"entries":    rec.Entries,
		"sha256":     rec.SHA256,
		"written_at": rec.WrittenAt.Format(time.RFC3339),
		"child":      rec.Child,
		"unchanged":  rec.Unchanged,
	}

	// Compare the file on disk against the tracked hash
	diskSHA, err := utils.CalculateFileSHA256(filepath.Join(s.cfg.AppConfig.StorePath, rec.Name))
	switch {
	case errors.Is(err, os.ErrNotExist):
		result["on_disk"] = "missing"
	case err != nil:
		result["on_disk"] = fmt.Sprintf("unreadable: %v", err)
	case diskSHA != rec.SHA256:
		result["on_disk"] = "modified"
	default:
		result["on_disk"] = "ok"
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// runGenerateJob runs a generation job in the background
func (s *Server) runGenerateJob(jobID string) {
	s.jobManager.UpdateStatus(jobID, JobStatusRunning, "")
	jobCtx := s.jobManager.GetContext(jobID)

	result, err := s.cfg.Generator.Run(jobCtx)
	if result != nil {
		recordJobResult(s.jobManager, jobID, result)
	}

	switch {
	case errors.Is(err, context.Canceled):
		s.jobManager.UpdateStatus(jobID, JobStatusCancelled, "")
	case err != nil:
		s.log.WithField("category", utils.CategorizeError(err)).Errorf("Generation job %s failed: %v", jobID, err)
		s.jobManager.UpdateStatus(jobID, JobStatusFailed, err.Error())
	default:
		s.jobManager.UpdateStatus(jobID, JobStatusCompleted, "")
	}
}

func recordJobResult(jm *JobManager, jobID string, result *orchestrate.RunResult) {
	jm.SetResult(jobID, result.Run.ID, result.Run.IndexURL, len(result.Run.Files), result.Run.TotalEntries())
}

// runSummary renders the headline fields of a run record
func runSummary(run *models.RunRecord) map[string]interface{} {
	summary := map[string]interface{}{
		"run_id":      run.ID,
		"success":     run.Success,
		"started_at":  run.StartedAt.Format(time.RFC3339),
		"finished_at": run.FinishedAt.Format(time.RFC3339),
		"file_count":  len(run.Files),
		"entries":     run.TotalEntries(),
	}
	if run.IndexURL != "" {
		summary["index_url"] = run.IndexURL
	}
	if run.Error != "" {
		summary["error"] = run.Error
	}
	if len(run.Stale) > 0 {
		summary["stale"] = run.Stale
	}
	return summary
}

// formatJSON formats data as an indented JSON string
func formatJSON(data map[string]interface{}) string {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("{\"error\": %q}", err.Error())
	}
	return string(b)
}
