// Package main is the kbsync CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/angelos/kbsync/internal/angelos"
	"github.com/angelos/kbsync/internal/config"
	"github.com/angelos/kbsync/internal/extract"
	"github.com/angelos/kbsync/internal/models"
	"github.com/angelos/kbsync/internal/server"
	"github.com/angelos/kbsync/internal/service"
	"github.com/angelos/kbsync/internal/storage"
	"github.com/angelos/kbsync/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kbsync/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "provision":
		runProvision()
	case "version", "--version", "-v":
		fmt.Printf("kbsync version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// Components bundles everything the subcommands need.
type Components struct {
	Storage       storage.Storage
	Files         *storage.FileStore
	Websites      *service.WebsiteService
	Documents     *service.DocumentService
	Questions     *service.SampleQuestionService
	StudyPrograms *service.StudyProgramService
	Organisations *service.OrganisationService
}

// Close releases held resources.
func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	files, err := storage.NewFileStore(cfg.Storage.UploadDir)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize file store: %w", err)
	}
	index := angelos.NewHTTPClient(
		cfg.Angelos.URL,
		cfg.Angelos.Secret,
		time.Duration(cfg.Angelos.TimeoutSeconds)*time.Second,
		logger,
	)
	fetcher := extract.NewFetcher(time.Duration(cfg.Parser.FetchTimeoutSeconds) * time.Second)
	extractor := extract.NewWebsiteExtractor(fetcher)

	return &Components{
		Storage:       store,
		Files:         files,
		Websites:      service.NewWebsiteService(store, index, extractor, logger),
		Documents:     service.NewDocumentService(store, files, index, logger),
		Questions:     service.NewSampleQuestionService(store, index, logger),
		StudyPrograms: service.NewStudyProgramService(store, files, index, logger),
		Organisations: service.NewOrganisationService(store, files, index, logger),
	}, nil
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	if _, err := components.Organisations.EnsureSystemOrganisation(context.Background()); err != nil {
		logger.Fatal("Failed to seed system organisation", zap.Error(err))
	}

	srv := server.NewServer(
		components.Websites,
		components.Documents,
		components.Questions,
		components.StudyPrograms,
		components.Organisations,
		&cfg.Server,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("Server stopped", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// provisionFile is the JSON shape the provision subcommand reads. Study
// programs are referenced by name and created within the target organisation
// when missing.
type provisionFile struct {
	Websites []struct {
		Link         string `json:"link"`
		Title        string `json:"title"`
		StudyProgram string `json:"study_program"`
	} `json:"websites"`
	SampleQuestions []struct {
		Topic        string `json:"topic"`
		Question     string `json:"question"`
		Answer       string `json:"answer"`
		StudyProgram string `json:"study_program"`
	} `json:"sample_questions"`
}

func runProvision() {
	fs := flag.NewFlagSet("provision", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	orgID := fs.Int64("org", 0, "target organisation id")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kbsync provision --org <id> <file.json>")
		os.Exit(1)
	}
	if *orgID == 0 {
		fmt.Println("--org is required")
		os.Exit(1)
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug || *debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Printf("Failed to read provision file: %v\n", err)
		os.Exit(1)
	}
	var pf provisionFile
	if err := json.Unmarshal(data, &pf); err != nil {
		fmt.Printf("Failed to parse provision file: %v\n", err)
		os.Exit(1)
	}

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	tenant := models.TenantContext{OrgID: *orgID}
	if _, err := components.Storage.GetOrganisation(ctx, *orgID); err != nil {
		fmt.Printf("Organisation %d not found\n", *orgID)
		os.Exit(1)
	}

	spByName := make(map[string]int64)
	resolveByName := func(name string) (int64, error) {
		if name == "" {
			return 0, fmt.Errorf("study_program must not be empty")
		}
		if id, ok := spByName[name]; ok {
			return id, nil
		}
		sps, err := components.Storage.ListStudyProgramsByOrg(ctx, *orgID)
		if err != nil {
			return 0, err
		}
		for _, sp := range sps {
			if sp.Name == name {
				spByName[name] = sp.ID
				return sp.ID, nil
			}
		}
		sp, err := components.StudyPrograms.Create(ctx, tenant, name)
		if err != nil {
			return 0, err
		}
		logger.Info("created study program", zap.String("name", name), zap.Int64("id", sp.ID))
		spByName[name] = sp.ID
		return sp.ID, nil
	}

	var websiteInputs []models.WebsiteInput
	for _, w := range pf.Websites {
		spID, err := resolveByName(w.StudyProgram)
		if err != nil {
			logger.Fatal("Failed to resolve study program", zap.String("name", w.StudyProgram), zap.Error(err))
		}
		websiteInputs = append(websiteInputs, models.WebsiteInput{
			Title:           w.Title,
			Link:            w.Link,
			StudyProgramIDs: []int64{spID},
		})
	}
	var questionInputs []models.SampleQuestionInput
	for _, q := range pf.SampleQuestions {
		spID, err := resolveByName(q.StudyProgram)
		if err != nil {
			logger.Fatal("Failed to resolve study program", zap.String("name", q.StudyProgram), zap.Error(err))
		}
		questionInputs = append(questionInputs, models.SampleQuestionInput{
			Topic:           q.Topic,
			Question:        q.Question,
			Answer:          q.Answer,
			StudyProgramIDs: []int64{spID},
		})
	}

	websites, err := components.Websites.AddBatch(ctx, tenant, websiteInputs)
	if err != nil {
		logger.Fatal("Website provisioning failed", zap.Int("added", len(websites)), zap.Error(err))
	}
	questions, err := components.Questions.AddBatch(ctx, tenant, questionInputs)
	if err != nil {
		logger.Fatal("Sample question provisioning failed", zap.Int("added", len(questions)), zap.Error(err))
	}
	fmt.Printf("Provisioned %d websites and %d sample questions\n", len(websites), len(questions))
}

func printUsage() {
	fmt.Println(`kbsync - knowledge resource synchronization service

Usage:
  kbsync server [flags]                      Start the HTTP server
  kbsync provision [flags] <file.json>       Batch-import websites and sample questions
  kbsync version                             Show version
  kbsync help                                Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kbsync/config.yaml)
  --debug            Enable debug logging

Provision Flags:
  --config string    Config file path
  --org int          Target organisation id (required)
  --debug            Enable debug logging

Examples:
  kbsync server
  kbsync provision --org 2 resources.json`)
}
