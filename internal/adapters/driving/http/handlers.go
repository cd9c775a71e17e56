package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/diagram-rag/internal/core/domain"
	"github.com/custodia-labs/diagram-rag/internal/core/services"
	"github.com/custodia-labs/diagram-rag/internal/metrics"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string                `json:"version" example:"1.0.0"`
	Runtime *domain.RuntimeConfig `json:"runtime,omitempty"`
}

// EnrichRequest is the body of POST /rag/enrich
type EnrichRequest struct {
	Prompt  string `json:"prompt" example:"Which documents must the clerk check?"`
	Diagram string `json:"diagram" example:"<?xml version=\"1.0\"?><bpmn:definitions>...</bpmn:definitions>"`
}

// EnrichResponse carries the augmented prompt
type EnrichResponse struct {
	EnrichedPrompt string `json:"enriched_prompt"`
}

// DocumentRequest is one chunk in POST /rag/add
type DocumentRequest struct {
	ID       string         `json:"id" example:"handbook_0"`
	Text     *string        `json:"text" example:"Loan applications are reviewed within two days."`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// AddResponse reports how many chunks were stored
type AddResponse struct {
	Status string `json:"status" example:"ok"`
	Added  int    `json:"added" example:"2"`
}

// UploadResponse reports an ingested PDF
type UploadResponse struct {
	Status string `json:"status" example:"PDF processed and added"`
	Source string `json:"source" example:"handbook"`
	Chunks int    `json:"chunks" example:"12"`
}

// IngestRequest is the body of POST /rag/ingest
type IngestRequest struct {
	Directory string `json:"directory,omitempty" example:"/data/pdfs"`
}

// UpdateRequest is the body of PUT /rag/{id}
type UpdateRequest struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// DeletedResponse reports how many chunks were removed
type DeletedResponse struct {
	Status  string `json:"status" example:"deleted"`
	Deleted int    `json:"deleted" example:"3"`
}

// SearchResult is one hit of GET /rag/search
type SearchResult struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
	Distance float64        `json:"distance"`
}

// SearchResponse wraps search hits
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

// DumpResponse lists every chunk ID
type DumpResponse struct {
	Count int      `json:"count"`
	IDs   []string `json:"ids"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Checks the vector store and the ingestion lock backend
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready.Ping(r.Context()); err != nil {
			s.logger.Warn("readiness check failed", "error", err)
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ready"})
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the version and the backends chosen at startup
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version, Runtime: s.runtime})
}

// RAG endpoints

// handleEnrich godoc
// @Summary      Enrich a prompt
// @Description  Extracts a query from the diagram, retrieves context and returns the augmented prompt
// @Tags         RAG
// @Accept       json
// @Produce      json
// @Param        request  body      EnrichRequest  true  "Prompt and diagram"
// @Success      200      {object}  EnrichResponse
// @Failure      400      {object}  ErrorResponse
// @Failure      502      {object}  ErrorResponse  "Vector store unavailable"
// @Router       /rag/enrich [post]
func (s *Server) handleEnrich(w http.ResponseWriter, r *http.Request) {
	var req EnrichRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	enriched, err := s.ragService.ProcessRAGRequest(r.Context(), req.Prompt, req.Diagram)
	if err != nil {
		s.metrics.RecordEnrichment(metrics.OutcomeFailed)
		s.writeServiceError(w, "enrich failed", err)
		return
	}

	if enriched == req.Prompt {
		s.metrics.RecordEnrichment(metrics.OutcomeNoContext)
	} else {
		s.metrics.RecordEnrichment(metrics.OutcomeEnriched)
	}
	writeJSON(w, http.StatusOK, EnrichResponse{EnrichedPrompt: enriched})
}

// handleSearch godoc
// @Summary      Similarity search
// @Description  Returns chunks closer than the configured threshold, nearest first
// @Tags         RAG
// @Produce      json
// @Param        query  query     string  true  "Search text"
// @Success      200    {object}  SearchResponse
// @Failure      400    {object}  ErrorResponse
// @Failure      502    {object}  ErrorResponse
// @Router       /rag/search [get]
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if strings.TrimSpace(query) == "" {
		writeError(w, http.StatusBadRequest, "no query provided")
		return
	}

	hits, err := s.ragService.SearchDocs(r.Context(), query)
	if err != nil {
		s.writeServiceError(w, "search failed", err)
		return
	}
	s.metrics.RecordRetrieval(len(hits))

	resp := SearchResponse{Results: make([]SearchResult, 0, len(hits))}
	for _, hit := range hits {
		resp.Results = append(resp.Results, SearchResult{
			ID:       hit.Chunk.ID,
			Text:     hit.Chunk.Text,
			Metadata: hit.Chunk.Metadata,
			Distance: hit.Distance,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Document endpoints

// handleAddDocs godoc
// @Summary      Add documents
// @Description  Stores chunks; entries with an empty id are dropped
// @Tags         Documents
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      []DocumentRequest  true  "Chunks"
// @Success      201      {object}  AddResponse
// @Failure      400      {object}  ErrorResponse
// @Router       /rag/add [post]
func (s *Server) handleAddDocs(w http.ResponseWriter, r *http.Request) {
	var docs []DocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&docs); err != nil {
		writeError(w, http.StatusBadRequest, "expected a list of documents")
		return
	}

	chunks := make([]*domain.Chunk, 0, len(docs))
	for _, doc := range docs {
		if doc.Text == nil {
			writeError(w, http.StatusBadRequest, "missing text in document")
			return
		}
		chunks = append(chunks, &domain.Chunk{ID: doc.ID, Text: *doc.Text, Metadata: doc.Metadata})
	}

	added, err := s.docService.AddDocs(r.Context(), chunks)
	if err != nil {
		s.writeServiceError(w, "add documents failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, AddResponse{Status: "ok", Added: added})
}

// handleUploadPDF godoc
// @Summary      Upload a PDF
// @Description  Splits the file and replaces every chunk of the source named after it
// @Tags         Documents
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file  formData  file  true  "PDF file"
// @Success      201   {object}  UploadResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      409   {object}  ErrorResponse  "Source is being ingested"
// @Failure      413   {object}  ErrorResponse
// @Failure      422   {object}  ErrorResponse  "File yielded no chunks"
// @Router       /rag/upload_pdf [post]
func (s *Server) handleUploadPDF(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if name == "." || name == string(filepath.Separator) {
		name = "unknown.pdf"
	}
	sourceID := services.SourceIDFromPath(name)

	dir, err := os.MkdirTemp("", "diagram-rag-upload-*")
	if err != nil {
		s.writeServiceError(w, "upload failed", err)
		return
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, name)
	if err := saveUpload(path, file); err != nil {
		s.writeServiceError(w, "upload failed", err)
		return
	}

	n, err := s.ingestionService.IngestDocument(r.Context(), sourceID, path)
	if err != nil {
		s.metrics.RecordIngestion(0, 1, 0)
		s.writeServiceError(w, "upload failed", err)
		return
	}
	s.metrics.RecordIngestion(1, 0, n)

	writeJSON(w, http.StatusCreated, UploadResponse{
		Status: "PDF processed and added",
		Source: sourceID,
		Chunks: n,
	})
}

// handleIngestDirectory godoc
// @Summary      Ingest a directory
// @Description  Ingests every PDF in the directory; defaults to the configured PDF directory
// @Tags         Documents
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      IngestRequest  false  "Directory"
// @Success      200      {object}  domain.BatchResult
// @Failure      400      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Router       /rag/ingest [post]
func (s *Server) handleIngestDirectory(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	dir := req.Directory
	if dir == "" {
		dir = s.pdfDir
	}
	if dir == "" {
		writeError(w, http.StatusBadRequest, "no directory provided")
		return
	}

	result, err := s.ingestionService.IngestDirectory(r.Context(), dir)
	if result != nil {
		s.metrics.RecordIngestion(result.Succeeded, result.Failed, result.Chunks)
	}
	if err != nil {
		s.writeServiceError(w, "ingest failed", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleGetDoc godoc
// @Summary      Get a chunk
// @Tags         Documents
// @Produce      json
// @Param        id   path      string  true  "Chunk ID"
// @Success      200  {object}  domain.Chunk
// @Failure      404  {object}  ErrorResponse
// @Router       /rag/{id} [get]
func (s *Server) handleGetDoc(w http.ResponseWriter, r *http.Request) {
	chunk, err := s.docService.GetDoc(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, "get document failed", err)
		return
	}
	writeJSON(w, http.StatusOK, chunk)
}

// handleUpdateDoc godoc
// @Summary      Update a chunk
// @Description  Replaces the text and metadata of a chunk
// @Tags         Documents
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string         true  "Chunk ID"
// @Param        request  body      UpdateRequest  true  "New content"
// @Success      200      {object}  StatusResponse
// @Failure      400      {object}  ErrorResponse
// @Router       /rag/{id} [put]
func (s *Server) handleUpdateDoc(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "no text provided")
		return
	}

	chunk := &domain.Chunk{ID: r.PathValue("id"), Text: req.Text, Metadata: req.Metadata}
	if err := s.docService.UpdateDoc(r.Context(), chunk); err != nil {
		s.writeServiceError(w, "update failed", err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "updated"})
}

// handleDeleteDoc godoc
// @Summary      Delete a chunk
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Chunk ID"
// @Success      200  {object}  StatusResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /rag/{id} [delete]
func (s *Server) handleDeleteDoc(w http.ResponseWriter, r *http.Request) {
	if err := s.docService.DeleteDoc(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, "delete failed", err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "deleted"})
}

// handleDeleteByPrefix godoc
// @Summary      Delete a source
// @Description  Removes every chunk whose ID starts with the prefix
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        prefix  path      string  true  "ID prefix"
// @Success      200     {object}  DeletedResponse
// @Failure      400     {object}  ErrorResponse
// @Router       /rag/prefix/{prefix} [delete]
func (s *Server) handleDeleteByPrefix(w http.ResponseWriter, r *http.Request) {
	n, err := s.docService.DeleteByPrefix(r.Context(), r.PathValue("prefix"))
	if err != nil {
		s.writeServiceError(w, "delete failed", err)
		return
	}
	writeJSON(w, http.StatusOK, DeletedResponse{Status: "deleted", Deleted: n})
}

// handleClear godoc
// @Summary      Clear the index
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  DeletedResponse
// @Router       /rag/clear [post]
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	n, err := s.docService.Clear(r.Context())
	if err != nil {
		s.writeServiceError(w, "clear failed", err)
		return
	}
	writeJSON(w, http.StatusOK, DeletedResponse{Status: "cleared", Deleted: n})
}

// handleDebugDump godoc
// @Summary      List chunk IDs
// @Tags         Documents
// @Produce      json
// @Success      200  {object}  DumpResponse
// @Router       /rag/debug_dump [get]
func (s *Server) handleDebugDump(w http.ResponseWriter, r *http.Request) {
	ids, err := s.docService.ListIDs(r.Context())
	if err != nil {
		s.writeServiceError(w, "debug dump failed", err)
		return
	}
	writeJSON(w, http.StatusOK, DumpResponse{Count: len(ids), IDs: ids})
}

// statusForError maps domain errors to HTTP status codes
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrTokenExpired),
		errors.Is(err, domain.ErrTokenInvalid),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrIngestInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrIngestion),
		errors.Is(err, domain.ErrTermExtraction):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrRetrieval):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError logs err and writes it with its mapped status.
// Internal errors are not echoed to the client.
func (s *Server) writeServiceError(w http.ResponseWriter, msg string, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, "error", err)
	} else {
		s.logger.Warn(msg, "error", err)
	}
	if status == http.StatusInternalServerError {
		writeError(w, status, "internal server error")
		return
	}
	writeError(w, status, err.Error())
}

func saveUpload(path string, src io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
