// Package server provides the HTTP API for the knowledge sync service.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/angelos/kbsync/internal/config"
	"github.com/angelos/kbsync/internal/service"
)

// Server is the HTTP server exposing the resource sync operations.
type Server struct {
	websites      *service.WebsiteService
	documents     *service.DocumentService
	questions     *service.SampleQuestionService
	studyPrograms *service.StudyProgramService
	organisations *service.OrganisationService
	config        *config.ServerConfig
	logger        *zap.Logger
	server        *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	websites *service.WebsiteService,
	documents *service.DocumentService,
	questions *service.SampleQuestionService,
	studyPrograms *service.StudyProgramService,
	organisations *service.OrganisationService,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	return &Server{
		websites:      websites,
		documents:     documents,
		questions:     questions,
		studyPrograms: studyPrograms,
		organisations: organisations,
		config:        cfg,
		logger:        logger,
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.tenantMiddleware)

		r.Route("/organisations", func(r chi.Router) {
			r.Post("/", s.handleCreateOrganisation)
			r.Get("/", s.handleListOrganisations)
			r.Delete("/{id}", s.handleDeleteOrganisation)
		})
		r.Route("/study-programs", func(r chi.Router) {
			r.Post("/", s.handleCreateStudyProgram)
			r.Get("/", s.handleListStudyPrograms)
			r.Delete("/{id}", s.handleDeleteStudyProgram)
		})
		r.Route("/websites", func(r chi.Router) {
			r.Post("/", s.handleAddWebsite)
			r.Post("/batch", s.handleAddWebsiteBatch)
			r.Get("/", s.handleListWebsites)
			r.Get("/{id}", s.handleGetWebsite)
			r.Put("/{id}", s.handleEditWebsite)
			r.Delete("/{id}", s.handleDeleteWebsite)
		})
		r.Route("/documents", func(r chi.Router) {
			r.Post("/", s.handleAddDocument)
			r.Get("/", s.handleListDocuments)
			r.Get("/{id}", s.handleGetDocument)
			r.Get("/{id}/file", s.handleDownloadDocument)
			r.Put("/{id}", s.handleEditDocument)
			r.Delete("/{id}", s.handleDeleteDocument)
		})
		r.Route("/sample-questions", func(r chi.Router) {
			r.Post("/", s.handleAddSampleQuestion)
			r.Post("/batch", s.handleAddSampleQuestionBatch)
			r.Get("/", s.handleListSampleQuestions)
			r.Get("/{id}", s.handleGetSampleQuestion)
			r.Put("/{id}", s.handleEditSampleQuestion)
			r.Delete("/{id}", s.handleDeleteSampleQuestion)
		})
	})
	return r
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
