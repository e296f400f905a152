package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/bjarke-xyz/course-applications/internal/domain"
	"github.com/bjarke-xyz/course-applications/internal/form"
	"github.com/bjarke-xyz/course-applications/internal/server/html"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	opList   = "list"
	opCreate = "create"
	opUpdate = "update"
	opDelete = "delete"
)

type userHandler func(userID string, w http.ResponseWriter, r *http.Request)

type targetHandler func(userID string, id uuid.UUID, w http.ResponseWriter, r *http.Request)

// withUser hands the signed in user to next. It must sit behind
// firebaseJwtVerifier.
func (s *server) withUser(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserIDFromContext(r.Context())
		if !ok {
			redirectToLogin(w, r, "", r.URL.RequestURI())
			return
		}
		next(userID, w, r)
	}
}

// withTarget also parses the {id} path parameter; ids that are not UUIDs can
// never match a record and answer 404.
func (s *server) withTarget(next targetHandler) http.HandlerFunc {
	return s.withUser(func(userID string, w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		next(userID, id, w, r)
	})
}

func (s *server) handleListApplications(userID string, w http.ResponseWriter, r *http.Request) {
	apps, err := s.applications.ListForUser(r.Context(), userID)
	if err != nil {
		s.serverError(w, opList, err, "userId", userID)
		return
	}
	s.metrics.observe(opList, outcomeOK)
	s.render(w, http.StatusOK, func(w io.Writer) error {
		return html.ListPage(w, html.ListParams{
			Title:        "Applications",
			Error:        r.URL.Query().Get("error"),
			Applications: apps,
		})
	})
}

func (s *server) handleGetCreateApplication(userID string, w http.ResponseWriter, r *http.Request) {
	s.renderForm(w, http.StatusOK, createFormParams(form.Application{}, nil))
}

func (s *server) handlePostCreateApplication(userID string, w http.ResponseWriter, r *http.Request) {
	f := form.Application{}
	if err := form.Decode(r, &f); err != nil {
		s.logger.Info("failed to decode create form", "error", err, "userId", userID)
		http.Error(w, "invalid form submission", http.StatusBadRequest)
		return
	}
	fields, err := f.Validate()
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		s.metrics.observe(opCreate, outcomeInvalid)
		s.renderForm(w, http.StatusOK, createFormParams(f, verr.Fields))
		return
	}
	if err != nil {
		s.serverError(w, opCreate, err, "userId", userID)
		return
	}

	app, err := s.applications.Create(r.Context(), userID, fields)
	if err != nil {
		s.serverError(w, opCreate, err, "userId", userID)
		return
	}
	s.metrics.observe(opCreate, outcomeOK)
	s.logger.Info("created application", "applicationId", app.ID, "userId", userID)
	redirectToList(w, r)
}

func (s *server) handleGetUpdateApplication(userID string, id uuid.UUID, w http.ResponseWriter, r *http.Request) {
	app, ok := s.loadOwned(w, r, opUpdate, userID, id)
	if !ok {
		return
	}
	s.renderForm(w, http.StatusOK, updateFormParams(app.ID, form.FromApplication(app), nil))
}

func (s *server) handlePostUpdateApplication(userID string, id uuid.UUID, w http.ResponseWriter, r *http.Request) {
	app, ok := s.loadOwned(w, r, opUpdate, userID, id)
	if !ok {
		return
	}
	f := form.FromApplication(app)
	if err := form.Decode(r, &f); err != nil {
		s.logger.Info("failed to decode update form", "error", err, "applicationId", id)
		http.Error(w, "invalid form submission", http.StatusBadRequest)
		return
	}
	fields, err := f.Validate()
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		s.metrics.observe(opUpdate, outcomeInvalid)
		s.renderForm(w, http.StatusOK, updateFormParams(app.ID, f, verr.Fields))
		return
	}
	if err != nil {
		s.serverError(w, opUpdate, err, "applicationId", id)
		return
	}

	_, err = s.applications.Update(r.Context(), userID, id, fields)
	if errors.Is(err, domain.ErrNotFound) {
		s.metrics.observe(opUpdate, outcomeNotFound)
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, opUpdate, err, "applicationId", id)
		return
	}
	s.metrics.observe(opUpdate, outcomeOK)
	redirectToList(w, r)
}

func (s *server) handleGetDeleteApplication(userID string, id uuid.UUID, w http.ResponseWriter, r *http.Request) {
	app, ok := s.loadOwned(w, r, opDelete, userID, id)
	if !ok {
		return
	}
	s.render(w, http.StatusOK, func(w io.Writer) error {
		return html.DeletePage(w, html.DeleteParams{
			Title:       "Delete application",
			Action:      applicationPath(app.ID, "delete"),
			Application: app,
		})
	})
}

func (s *server) handlePostDeleteApplication(userID string, id uuid.UUID, w http.ResponseWriter, r *http.Request) {
	err := s.applications.Delete(r.Context(), userID, id)
	if errors.Is(err, domain.ErrNotFound) {
		s.metrics.observe(opDelete, outcomeNotFound)
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, opDelete, err, "applicationId", id)
		return
	}
	s.metrics.observe(opDelete, outcomeOK)
	s.logger.Info("deleted application", "applicationId", id, "userId", userID)
	redirectToList(w, r)
}

// loadOwned fetches the target application and writes a 404 or 500 response
// when it cannot be used. Applications owned by someone else are reported as
// not found.
func (s *server) loadOwned(w http.ResponseWriter, r *http.Request, op string, userID string, id uuid.UUID) (domain.Application, bool) {
	app, err := s.applications.GetForUser(r.Context(), userID, id)
	if errors.Is(err, domain.ErrNotFound) {
		s.metrics.observe(op, outcomeNotFound)
		http.NotFound(w, r)
		return app, false
	}
	if err != nil {
		s.serverError(w, op, err, "applicationId", id)
		return app, false
	}
	return app, true
}

func (s *server) serverError(w http.ResponseWriter, op string, err error, attrs ...any) {
	s.metrics.observe(op, outcomeError)
	s.logger.Error(fmt.Sprintf("failed to %s application", op), append([]any{"error", err}, attrs...)...)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// render executes page into a buffer first so a template failure never leaves
// a half written response.
func (s *server) render(w http.ResponseWriter, status int, page func(io.Writer) error) {
	var buf bytes.Buffer
	if err := page(&buf); err != nil {
		s.logger.Error("failed to render page", "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (s *server) renderForm(w http.ResponseWriter, status int, p html.FormParams) {
	s.render(w, status, func(w io.Writer) error {
		return html.FormPage(w, p)
	})
}

func createFormParams(f form.Application, errs map[string]string) html.FormParams {
	return html.FormParams{
		Title:       "New application",
		Action:      "/applications/create/",
		SubmitLabel: "Create",
		Form:        f,
		Errors:      errs,
	}
}

func updateFormParams(id uuid.UUID, f form.Application, errs map[string]string) html.FormParams {
	return html.FormParams{
		Title:       "Edit application",
		Action:      applicationPath(id, "update"),
		SubmitLabel: "Save",
		Form:        f,
		Errors:      errs,
	}
}

func applicationPath(id uuid.UUID, action string) string {
	return fmt.Sprintf("/applications/%s/%s/", id, action)
}

func redirectToList(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, listPath, http.StatusFound)
}
