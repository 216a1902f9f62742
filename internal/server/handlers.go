package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/angelos/kbsync/internal/angelos"
	"github.com/angelos/kbsync/internal/extract"
	"github.com/angelos/kbsync/internal/models"
	"github.com/angelos/kbsync/internal/service"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateOrganisation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	org, err := s.organisations.Create(r.Context(), tenantFrom(r), req.Name)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, org)
}

func (s *Server) handleListOrganisations(w http.ResponseWriter, r *http.Request) {
	orgs, err := s.organisations.List(r.Context(), tenantFrom(r))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, orgs)
}

func (s *Server) handleDeleteOrganisation(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid organisation id")
		return
	}
	if err := s.organisations.Delete(r.Context(), tenantFrom(r), id); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleCreateStudyProgram(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sp, err := s.studyPrograms.Create(r.Context(), tenantFrom(r), req.Name)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, sp)
}

func (s *Server) handleListStudyPrograms(w http.ResponseWriter, r *http.Request) {
	sps, err := s.studyPrograms.List(r.Context(), tenantFrom(r))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, sps)
}

func (s *Server) handleDeleteStudyProgram(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid study program id")
		return
	}
	if err := s.studyPrograms.Delete(r.Context(), tenantFrom(r), id); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleAddWebsite(w http.ResponseWriter, r *http.Request) {
	var in models.WebsiteInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("add website request", zap.String("link", in.Link))
	website, err := s.websites.Add(r.Context(), tenantFrom(r), in)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, website)
}

func (s *Server) handleAddWebsiteBatch(w http.ResponseWriter, r *http.Request) {
	var ins []models.WebsiteInput
	if err := json.NewDecoder(r.Body).Decode(&ins); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("add website batch request", zap.Int("count", len(ins)))
	websites, err := s.websites.AddBatch(r.Context(), tenantFrom(r), ins)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, websites)
}

func (s *Server) handleListWebsites(w http.ResponseWriter, r *http.Request) {
	websites, err := s.websites.List(r.Context(), tenantFrom(r))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, websites)
}

func (s *Server) handleGetWebsite(w http.ResponseWriter, r *http.Request) {
	website, err := s.websites.Get(r.Context(), tenantFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, website)
}

func (s *Server) handleEditWebsite(w http.ResponseWriter, r *http.Request) {
	var in models.WebsiteInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	website, err := s.websites.Edit(r.Context(), tenantFrom(r), chi.URLParam(r, "id"), in)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, website)
}

func (s *Server) handleDeleteWebsite(w http.ResponseWriter, r *http.Request) {
	if err := s.websites.Delete(r.Context(), tenantFrom(r), chi.URLParam(r, "id")); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleAddDocument accepts a multipart form with a "file" part, a "title"
// field and repeated "studyProgramIds" fields.
func (s *Server) handleAddDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	in := models.DocumentInput{Title: r.FormValue("title")}
	for _, raw := range r.Form["studyProgramIds"] {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid study program id")
			return
		}
		in.StudyProgramIDs = append(in.StudyProgramIDs, id)
	}

	s.logger.Debug("add document request",
		zap.String("filename", header.Filename), zap.Int("size", len(content)))
	doc, err := s.documents.Add(r.Context(), tenantFrom(r), in, header.Filename, content)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.documents.List(r.Context(), tenantFrom(r))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, docs)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.documents.Get(r.Context(), tenantFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDownloadDocument(w http.ResponseWriter, r *http.Request) {
	content, filename, err := s.documents.Download(r.Context(), tenantFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

func (s *Server) handleEditDocument(w http.ResponseWriter, r *http.Request) {
	var in models.DocumentInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	doc, err := s.documents.Edit(r.Context(), tenantFrom(r), chi.URLParam(r, "id"), in)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.documents.Delete(r.Context(), tenantFrom(r), chi.URLParam(r, "id")); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleAddSampleQuestion(w http.ResponseWriter, r *http.Request) {
	var in models.SampleQuestionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	q, err := s.questions.Add(r.Context(), tenantFrom(r), in)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, q)
}

func (s *Server) handleAddSampleQuestionBatch(w http.ResponseWriter, r *http.Request) {
	var ins []models.SampleQuestionInput
	if err := json.NewDecoder(r.Body).Decode(&ins); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	qs, err := s.questions.AddBatch(r.Context(), tenantFrom(r), ins)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, qs)
}

func (s *Server) handleListSampleQuestions(w http.ResponseWriter, r *http.Request) {
	qs, err := s.questions.List(r.Context(), tenantFrom(r))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, qs)
}

func (s *Server) handleGetSampleQuestion(w http.ResponseWriter, r *http.Request) {
	q, err := s.questions.Get(r.Context(), tenantFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, q)
}

func (s *Server) handleEditSampleQuestion(w http.ResponseWriter, r *http.Request) {
	var in models.SampleQuestionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	q, err := s.questions.Edit(r.Context(), tenantFrom(r), chi.URLParam(r, "id"), in)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, q)
}

func (s *Server) handleDeleteSampleQuestion(w http.ResponseWriter, r *http.Request) {
	if err := s.questions.Delete(r.Context(), tenantFrom(r), chi.URLParam(r, "id")); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// respondServiceError maps service errors onto HTTP status codes. Failures
// of the remote index or of content extraction surface as bad gateway.
func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	var (
		notFound     *service.NotFoundError
		unauthorized *service.UnauthorizedError
		validation   *service.ValidationError
		extraction   *extract.ExtractionError
		sync         *angelos.SyncError
	)
	switch {
	case errors.As(err, &notFound):
		s.respondError(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &unauthorized):
		s.respondError(w, http.StatusForbidden, unauthorized.Error())
	case errors.As(err, &validation):
		s.respondError(w, http.StatusBadRequest, validation.Error())
	case errors.As(err, &extraction), errors.As(err, &sync):
		s.logger.Error("upstream failure", zap.Error(err))
		s.respondError(w, http.StatusBadGateway, err.Error())
	default:
		s.logger.Error("request failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
