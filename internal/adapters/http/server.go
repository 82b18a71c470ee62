package httpadapter

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"candor/internal/crypto"
	"candor/internal/domain"
	"candor/internal/ports"
)

// Server exposes the submission, status, webhook, and ledger-proof
// surfaces over JSON.
type Server struct {
	intake     ports.Intake
	status     ports.StatusReader
	reconciler ports.Reconciler
	ledger     ports.Ledger
	log        *slog.Logger
}

func New(intake ports.Intake, status ports.StatusReader, reconciler ports.Reconciler, ledger ports.Ledger, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{intake: intake, status: status, reconciler: reconciler, ledger: ledger, log: log}
}

// Routes returns the chi router for the API surface.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealthz)
	r.Route("/api", func(r chi.Router) {
		r.Post("/reports", s.handleSubmit)
		r.Get("/reports/{id}/status", s.handleStatus)
		r.Post("/webhook/processing-complete", s.handleWebhook)
		r.Get("/ledger/{hash}", s.handleProof)
	})
	return r
}

type attachmentPayload struct {
	Name string `json:"name"`
	Data string `json:"data"` // base64
}

type submitRequest struct {
	Envelope    *crypto.Envelope    `json:"envelope"`
	Attachments []attachmentPayload `json:"attachments"`
	Reporter    string              `json:"reporter"`
}

type submitResponse struct {
	ReportID string `json:"reportId"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	attachments := make([]ports.Attachment, 0, len(req.Attachments))
	for _, a := range req.Attachments {
		data, err := base64.StdEncoding.DecodeString(a.Data)
		if err != nil {
			writeError(w, http.StatusBadRequest, "attachment data is not valid base64")
			return
		}
		attachments = append(attachments, ports.Attachment{Name: a.Name, Data: data})
	}

	reportID, err := s.intake.Submit(r.Context(), req.Envelope, attachments, req.Reporter)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, submitResponse{ReportID: reportID})
}

type statusResponse struct {
	ReportID         string                   `json:"reportId"`
	Status           string                   `json:"status"`
	RedactionSummary *domain.RedactionSummary `json:"redactionSummary,omitempty"`
	EthTxHash        string                   `json:"ethTxHash,omitempty"`
	UpdatedAt        time.Time                `json:"updatedAt"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	rec, err := s.status.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		ReportID:         rec.ReportID,
		Status:           string(rec.Status),
		RedactionSummary: rec.RedactionSummary,
		EthTxHash:        rec.EthTxHash,
		UpdatedAt:        rec.UpdatedAt,
	})
}

// webhookRequest matches the redaction worker's callback payload.
type webhookRequest struct {
	ReportID         string                   `json:"reportId"`
	Status           string                   `json:"status"`
	RedactionSummary *domain.RedactionSummary `json:"redactionSummary"`
	Error            string                   `json:"error"`
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var req webhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ReportID == "" {
		writeError(w, http.StatusBadRequest, "missing reportId")
		return
	}
	err := s.reconciler.ApplyResult(r.Context(), req.ReportID, domain.Status(req.Status), req.RedactionSummary)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "applied"})
}

func (s *Server) handleProof(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		writeError(w, http.StatusNotFound, "no ledger configured")
		return
	}
	rec, err := s.ledger.GetProof(r.Context(), chi.URLParam(r, "hash"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeDomainError maps the error taxonomy onto HTTP status codes.
// UnknownEntity surfaces distinctly from ResourceUnavailable so
// callers can tell "doesn't exist" from "try again".
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidEnvelope), errors.Is(err, domain.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrUnknownReport), errors.Is(err, domain.ErrNotAnchored):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrAlreadyFinalized), errors.Is(err, domain.ErrDuplicateHash):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrStorageUnavailable), errors.Is(err, domain.ErrQueueUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.log.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
