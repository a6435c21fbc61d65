package proposal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/saltastro/saltapi/internal/platform/httpx"
	"github.com/saltastro/saltapi/internal/rbac"
	"github.com/saltastro/saltapi/internal/shared"
	"github.com/saltastro/saltapi/internal/users"
)

const defaultMaxUpload = 64 << 20

// ContactsInvalidator drops cached proposal contacts.
type ContactsInvalidator interface {
	Invalidate(ctx context.Context, proposalCode string) error
}

// Handler serves proposal submission and contact endpoints.
type Handler struct {
	logger      *slog.Logger
	submitter   Submitter
	contacts    users.ContactsFinder
	invalidator ContactsInvalidator
	rbac        rbac.Middleware
	maxUpload   int64
}

// NewHandler builds Handler instance. invalidator may be nil.
func NewHandler(logger *slog.Logger, submitter Submitter, contacts users.ContactsFinder, invalidator ContactsInvalidator, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:      logger,
		submitter:   submitter,
		contacts:    contacts,
		invalidator: invalidator,
		rbac:        rbac,
		maxUpload:   defaultMaxUpload,
	}
}

// MountRoutes registers proposal routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAuthenticated())
		r.Post("/", h.submit)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.OpViewProposal, rbac.ProposalCodeParam("code")))
		r.Get("/{code}/contacts", h.getContacts)
	})
}

type submitResponse struct {
	SubmissionID string `json:"submission_id"`
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: multipart form expected", httpx.ErrValidation))
		return
	}
	file, header, err := r.FormFile("proposal")
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: proposal file required", httpx.ErrValidation))
		return
	}
	defer func() { _ = file.Close() }()

	code, err := submissionCode(strings.TrimSpace(r.FormValue("proposal_code")), file, header.Size)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}

	principal, _ := shared.PrincipalFromContext(r.Context())
	if err := h.rbac.Policy.Require(r.Context(), principal, rbac.OpSubmitProposal, rbac.OperationContext{ProposalCode: code}); err != nil {
		if shared.StatusFor(err) == http.StatusInternalServerError {
			h.logger.Error("authorize submission", slog.String("proposal_code", code), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		h.logger.Error("rewind proposal file", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	id, err := h.submitter.Submit(r.Context(), Submission{
		Filename:     header.Filename,
		Content:      file,
		ProposalCode: code,
		Submitter:    principal.Identity.Username,
	})
	if err != nil {
		h.respondSubmitError(w, code, err)
		return
	}

	if code != "" && h.invalidator != nil {
		if err := h.invalidator.Invalidate(r.Context(), code); err != nil {
			h.logger.Warn("invalidate proposal contacts", slog.String("proposal_code", code), slog.Any("error", err))
		}
	}
	h.logger.Info("proposal submitted",
		slog.String("proposal_code", code),
		slog.String("submission_id", id),
		slog.String("submitter", principal.Identity.Username))
	httpx.JSON(w, http.StatusAccepted, submitResponse{SubmissionID: id})
}

// submissionCode reconciles the form code with the code inside the archive.
// The archive is always read; a non-empty form code must agree with a
// non-empty archive code.
func submissionCode(formValue string, archive io.ReaderAt, size int64) (string, error) {
	formCode, err := ParseCode(formValue)
	if err != nil {
		return "", err
	}
	archiveCode, err := CodeFromArchive(archive, size)
	if err != nil {
		return "", err
	}
	switch {
	case formCode == "":
		return archiveCode, nil
	case archiveCode == "" || archiveCode == formCode:
		return formCode, nil
	}
	return "", fmt.Errorf("proposal: %w: form has %s, archive has %s", ErrCodeMismatch, formCode, archiveCode)
}

func (h *Handler) respondSubmitError(w http.ResponseWriter, code string, err error) {
	var rejected *RejectedError
	switch {
	case errors.As(err, &rejected):
		h.logger.Info("storage service rejected proposal", slog.String("proposal_code", code), slog.String("reason", rejected.Message))
		httpx.Problem(w, http.StatusBadGateway, http.StatusText(http.StatusBadGateway), rejected.Message)
	case errors.Is(err, ErrStorageService):
		h.logger.Error("submit proposal", slog.String("proposal_code", code), slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, http.StatusText(http.StatusBadGateway), ErrStorageService.Error())
	default:
		h.logger.Error("submit proposal", slog.String("proposal_code", code), slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func (h *Handler) getContacts(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(chi.URLParam(r, "code"))
	contacts, err := h.contacts.FindProposalContacts(r.Context(), code)
	if err != nil {
		h.logger.Error("find proposal contacts", slog.String("proposal_code", code), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if contacts.Investigator == "" && contacts.Contact == "" {
		httpx.RespondError(w, shared.ErrNotFound)
		return
	}
	httpx.JSON(w, http.StatusOK, contacts)
}
