package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Sriram-PR/sitemap-gen/pkg/config"
	applog "github.com/Sriram-PR/sitemap-gen/pkg/log"
	"github.com/Sriram-PR/sitemap-gen/pkg/models"
	"github.com/Sriram-PR/sitemap-gen/pkg/orchestrate"
	"github.com/Sriram-PR/sitemap-gen/pkg/sitemap"
	"github.com/Sriram-PR/sitemap-gen/pkg/source"
	"github.com/Sriram-PR/sitemap-gen/pkg/storage"
)

const gcInterval = 10 * time.Minute

// doGenerate is the testable implementation of the generate subcommand
func doGenerate(configPath, envFile, logLevel string, noState bool, stdout, stderr io.Writer) int {
	log := applog.NewLogger(stderr, logLevel)

	appCfg, err := loadAndValidateConfig(configPath, envFile, log)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return 1
	}
	logAppConfig(appCfg, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, err := source.Open(appCfg.Database.Driver, appCfg.Database.DSN)
	if err != nil {
		fmt.Fprintf(stderr, "Error opening record source: %v\n", err)
		return 1
	}
	if c, ok := src.(source.Closer); ok {
		defer c.Close()
	}

	var store storage.StateStore
	if noState {
		log.Info("State store disabled; change tracking and stale detection are off")
	} else {
		badgerStore, err := openStore(appCfg, log)
		if err != nil {
			fmt.Fprintf(stderr, "Error opening state store: %v\n", err)
			return 1
		}
		defer badgerStore.Close()

		gcCtx, cancelGC := context.WithCancel(ctx)
		defer cancelGC() // Runs before Close
		go badgerStore.RunGC(gcCtx, gcInterval)
		store = badgerStore
	}

	generator := orchestrate.NewGenerator(appCfg, src, store, log)
	result, err := generator.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("Generation cancelled; the previous sitemap index was left in place.")
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	printRun(stdout, result.Run, false)
	return 0
}

// doValidate is the testable implementation of the validate subcommand
func doValidate(configPath, envFile, postfix string, stdout, stderr io.Writer) int {
	appCfg, err := loadConfig(configPath, envFile)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if postfix != "" {
		smCfg, ok := appCfg.FindSitemap(postfix)
		if !ok {
			fmt.Fprintf(stderr, "Error: sitemap '%s' not found in config\n", postfix)
			return 1
		}
		smWarnings, err := smCfg.Validate()
		if err != nil {
			fmt.Fprintf(stderr, "ERROR: [%s] %v\n", postfix, err)
			return 1
		}
		for _, w := range smWarnings {
			fmt.Fprintf(stdout, "WARN: [%s] %s\n", postfix, w)
		}
		fmt.Fprintf(stdout, "OK: Sitemap '%s' configuration is valid\n", postfix)
		return 0
	}

	// Definitions first, so every broken one is reported
	printed := make(map[string]bool)
	hasError := false
	for _, smCfg := range appCfg.Sitemaps {
		smWarnings, err := smCfg.Validate()
		if err != nil {
			fmt.Fprintf(stderr, "ERROR: [%s] %v\n", smCfg.Postfix, err)
			hasError = true
			continue
		}
		for _, w := range smWarnings {
			line := fmt.Sprintf("[%s] %s", smCfg.Postfix, w)
			printed[line] = true
			fmt.Fprintf(stdout, "WARN: %s\n", line)
		}
		fmt.Fprintf(stdout, "OK: [%s]\n", smCfg.Postfix)
	}
	if hasError {
		return 1
	}

	warnings, err := appCfg.Validate()
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}
	for _, w := range warnings {
		if !printed[w] {
			fmt.Fprintf(stdout, "WARN: %s\n", w)
		}
	}

	fmt.Fprintln(stdout, "\nConfiguration valid.")
	return 0
}

// doListSitemaps is the testable implementation of the list-sitemaps subcommand
func doListSitemaps(configPath, envFile string, postfixes []string, stdout, stderr io.Writer) int {
	appCfg, err := loadConfig(configPath, envFile)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if _, err := appCfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := orchestrate.ValidatePostfixes(appCfg, postfixes); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if len(postfixes) == 0 {
		postfixes = orchestrate.GetAllPostfixes(appCfg)
	}

	fmt.Fprintf(stdout, "Sitemaps (index: %s/%s):\n", appCfg.BaseURL, sitemap.IndexFileName)
	for _, p := range postfixes {
		smCfg, _ := appCfg.FindSitemap(p)
		fmt.Fprintf(stdout, "\n  %s\n", p)
		fmt.Fprintf(stdout, "    File: %s\n", sitemap.FileName(p))
		fmt.Fprintf(stdout, "    Table: %s\n", smCfg.Query.Table)
		fmt.Fprintf(stdout, "    Route: %s\n", smCfg.Query.Route)
		if smCfg.HasChildren() {
			fmt.Fprintf(stdout, "    Children: %s (%s = %s), route %s\n",
				smCfg.ChildQuery.Table, smCfg.ChildLink.ChildField, smCfg.ChildLink.ParentAttribute, smCfg.ChildQuery.Route)
		}
		fmt.Fprintf(stdout, "    ChangeFreq: %s, Priority: %v\n",
			config.GetEffectiveChangeFreq(smCfg, *appCfg), config.GetEffectivePriority(smCfg, *appCfg))
	}
	return 0
}

// doStatus is the testable implementation of the status subcommand
func doStatus(configPath, envFile, runID string, stdout, stderr io.Writer) int {
	log := applog.NewLogger(stderr, "warn")

	appCfg, err := loadAndValidateConfig(configPath, envFile, log)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return 1
	}

	store, err := openStore(appCfg, log)
	if err != nil {
		fmt.Fprintf(stderr, "Error opening state store: %v\n", err)
		return 1
	}
	defer store.Close()

	var (
		run   *models.RunRecord
		found bool
	)
	if runID != "" {
		run, found, err = store.GetRun(runID)
	} else {
		run, found, err = store.LastRun()
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error reading run: %v\n", err)
		return 1
	}
	if !found {
		if runID != "" {
			fmt.Fprintf(stderr, "Error: run '%s' not found\n", runID)
			return 1
		}
		fmt.Fprintln(stdout, "No generation run recorded yet.")
		return 0
	}

	printRun(stdout, run, true)
	return 0
}

// printRun writes a human-readable run summary, optionally with every file
func printRun(w io.Writer, run *models.RunRecord, withFiles bool) {
	status := "success"
	if !run.Success {
		status = "failed"
	}
	unchanged := 0
	for _, f := range run.Files {
		if f.Unchanged {
			unchanged++
		}
	}

	fmt.Fprintf(w, "Run:      %s\n", run.ID)
	fmt.Fprintf(w, "Status:   %s\n", status)
	fmt.Fprintf(w, "Started:  %s\n", run.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Duration: %v\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	if run.IndexURL != "" {
		fmt.Fprintf(w, "Index:    %s\n", run.IndexURL)
	}
	fmt.Fprintf(w, "Files:    %d (%d unchanged)\n", len(run.Files), unchanged)
	fmt.Fprintf(w, "Entries:  %d\n", run.TotalEntries())
	if len(run.Stale) > 0 {
		fmt.Fprintf(w, "Stale:    %s\n", strings.Join(run.Stale, ", "))
	}
	if run.Error != "" {
		fmt.Fprintf(w, "Error:    %s\n", run.Error)
	}

	if withFiles {
		for _, f := range run.Files {
			var flags []string
			if f.Child {
				flags = append(flags, "child")
			}
			if f.Unchanged {
				flags = append(flags, "unchanged")
			}
			fmt.Fprintf(w, "  %-40s %6d entries  %s\n", f.Name, f.Entries, strings.Join(flags, ","))
		}
	}
}
