package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/curmorpheus/safesite/storage"
)

// formsBucket holds submitted safety forms keyed by ULID, so listing by key
// order is listing by submission time.
const formsBucket = "forms"

// EmailSender delivers a completed form to a recipient. The server ships
// with a log-only implementation; deployments plug in their mail gateway.
type EmailSender interface {
	SendForm(ctx context.Context, to string, form FormRecord) error
}

// logEmailSender writes the delivery to the structured log instead of
// sending mail. Useful in development and as a safe default.
type logEmailSender struct {
	logger *slog.Logger
}

func (s logEmailSender) SendForm(ctx context.Context, to string, form FormRecord) error {
	s.logger.LogAttrs(ctx, slog.LevelInfo, "email delivery (log only)",
		slog.String("to", to),
		slog.String("form_id", form.ID),
		slog.String("form_type", form.FormType))
	return nil
}

// SubmitForm handles POST /forms.
func (a *API) SubmitForm(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	req, ok := decodeJSON[SubmitFormRequest](w, r)
	if !ok {
		return
	}
	if req.Site == "" {
		writeError(w, http.StatusBadRequest, "site is required")
		return
	}
	if req.FormType == "" {
		writeError(w, http.StatusBadRequest, "formType is required")
		return
	}
	if len(req.Data) == 0 || !json.Valid(req.Data) {
		writeError(w, http.StatusBadRequest, "data must be a JSON document")
		return
	}

	form := FormRecord{
		ID:          ulid.Make().String(),
		Site:        req.Site,
		FormType:    req.FormType,
		Data:        req.Data,
		SubmittedBy: claims.UserID,
		SubmittedAt: time.Now().UTC(),
	}
	if err := a.putForm(form); err != nil {
		mapError(w, err)
		return
	}

	a.audit.logUser(EventFormSubmitted, r, claims.UserID,
		slog.String("form_id", form.ID),
		slog.String("site", form.Site))
	writeJSON(w, http.StatusCreated, form)
}

// ListForms handles GET /forms. Superintendents see their own submissions;
// admins see everything. An optional site query parameter narrows the list.
func (a *API) ListForms(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	site := r.URL.Query().Get("site")

	forms, err := a.listForms(func(f FormRecord) bool {
		if claims.Role != RoleAdmin && f.SubmittedBy != claims.UserID {
			return false
		}
		return site == "" || f.Site == site
	})
	if err != nil {
		mapError(w, err)
		return
	}

	limit, offset := parsePagination(r)
	start, end, meta := paginateSlice(len(forms), limit, offset)
	writeJSON(w, http.StatusOK, ListFormsResponse{
		Forms:          forms[start:end],
		PaginationMeta: meta,
	})
}

// GetForm handles GET /forms/{formID}.
func (a *API) GetForm(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	form, err := a.getForm(chi.URLParam(r, "formID"))
	if err != nil {
		mapError(w, err)
		return
	}
	if claims.Role != RoleAdmin && form.SubmittedBy != claims.UserID {
		writeError(w, http.StatusForbidden, "insufficient permissions")
		return
	}
	writeJSON(w, http.StatusOK, form)
}

// EmailForm handles POST /forms/{formID}/email.
func (a *API) EmailForm(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	req, ok := decodeJSON[EmailFormRequest](w, r)
	if !ok {
		return
	}
	if req.To == "" {
		writeError(w, http.StatusBadRequest, "to is required")
		return
	}

	form, err := a.getForm(chi.URLParam(r, "formID"))
	if err != nil {
		mapError(w, err)
		return
	}
	if claims.Role != RoleAdmin && form.SubmittedBy != claims.UserID {
		writeError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	if err := a.email.SendForm(r.Context(), req.To, form); err != nil {
		writeError(w, http.StatusBadGateway, "failed to deliver email")
		return
	}
	a.audit.logUser(EventFormEmailed, r, claims.UserID,
		slog.String("form_id", form.ID),
		slog.String("to", req.To))
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (a *API) putForm(form FormRecord) error {
	raw, err := json.Marshal(form)
	if err != nil {
		return fmt.Errorf("encoding form: %w", err)
	}
	return a.store.Put(formsBucket, form.ID, raw)
}

func (a *API) getForm(id string) (FormRecord, error) {
	raw, err := a.store.Get(formsBucket, id)
	if err != nil {
		return FormRecord{}, err
	}
	var form FormRecord
	if err := json.Unmarshal(raw, &form); err != nil {
		return FormRecord{}, fmt.Errorf("decoding form %s: %w", id, err)
	}
	return form, nil
}

func (a *API) listForms(keep func(FormRecord) bool) ([]FormRecord, error) {
	keys, err := a.store.List(formsBucket)
	if err != nil {
		return nil, err
	}
	forms := make([]FormRecord, 0, len(keys))
	for _, key := range keys {
		form, err := a.getForm(key)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if keep(form) {
			forms = append(forms, form)
		}
	}
	return forms, nil
}
