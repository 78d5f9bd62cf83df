package app

import (
	"encoding/json"
	"net/http"

	"proposals/api/internal/draft"
	"proposals/api/internal/money"
	"proposals/api/internal/proposal"
)

func draftPayload(d draft.Draft) map[string]any {
	return map[string]any{
		"draft": map[string]any{
			"id":            d.ID,
			"title":         d.Title,
			"clientName":    d.ClientName,
			"hourlyRate":    d.HourlyRate,
			"budget":        d.Budget,
			"hoursLocked":   d.HoursLocked,
			"sections":      d.Sections,
			"total":         money.Format(proposal.Total(d.Sections)),
			"revisionCount": len(d.Revisions),
			"updatedAt":     d.UpdatedAt,
		},
	}
}

// handleDrafts serves /api/drafts/... and reports whether the route matched.
func (s *HTTPServer) handleDrafts(w http.ResponseWriter, r *http.Request, session Session, parts []string) bool {
	if len(parts) == 0 {
		if r.Method != http.MethodPost {
			return false
		}
		var body CreateDraftInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return true
		}
		d, err := s.service.CreateDraft(r.Context(), session, body)
		s.respondDraft(w, r, http.StatusCreated, d, err)
		return true
	}

	draftID := parts[0]
	rest := parts[1:]

	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		d, err := s.service.GetDraft(r.Context(), session, draftID)
		s.respondDraft(w, r, http.StatusOK, d, err)
		return true

	case len(rest) == 0 && (r.Method == http.MethodPut || r.Method == http.MethodPatch):
		var body UpdateDraftInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return true
		}
		d, err := s.service.UpdateDraft(r.Context(), session, draftID, body)
		s.respondDraft(w, r, http.StatusOK, d, err)
		return true

	case len(rest) == 0 && r.Method == http.MethodDelete:
		if err := s.service.DeleteDraft(r.Context(), session, draftID); err != nil {
			s.fail(w, r, err)
			return true
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return true

	case len(rest) == 1 && rest[0] == "reconcile" && r.Method == http.MethodPost:
		s.handleReconcile(w, r, session, draftID)
		return true

	case len(rest) == 1 && rest[0] == "revisions" && r.Method == http.MethodGet:
		revisions, err := s.service.Revisions(r.Context(), session, draftID)
		if err != nil {
			s.fail(w, r, err)
			return true
		}
		writeJSON(w, http.StatusOK, map[string]any{"revisions": revisions})
		return true

	case len(rest) == 1 && rest[0] == "save" && r.Method == http.MethodPost:
		result, err := s.service.SaveDraft(r.Context(), session, draftID)
		if err != nil {
			s.fail(w, r, err)
			return true
		}
		writeJSON(w, http.StatusCreated, result)
		return true

	case len(rest) >= 1 && rest[0] == "sections":
		return s.handleDraftSections(w, r, session, draftID, rest[1:])
	}
	return false
}

func (s *HTTPServer) handleDraftSections(w http.ResponseWriter, r *http.Request, session Session, draftID string, parts []string) bool {
	if len(parts) == 0 {
		if r.Method != http.MethodPost {
			return false
		}
		var body struct {
			Title string `json:"title"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return true
		}
		d, err := s.service.AddSection(r.Context(), session, draftID, body.Title)
		s.respondDraft(w, r, http.StatusCreated, d, err)
		return true
	}

	sectionIndex, ok := parseIndex(parts[0])
	if !ok {
		writeError(w, http.StatusNotFound, "SECTION_NOT_FOUND", "Section not found", nil)
		return true
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodPut:
		var body struct {
			Title string `json:"title"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return true
		}
		d, err := s.service.RenameSection(r.Context(), session, draftID, sectionIndex, body.Title)
		s.respondDraft(w, r, http.StatusOK, d, err)
		return true

	case len(parts) == 1 && r.Method == http.MethodDelete:
		d, err := s.service.DeleteSection(r.Context(), session, draftID, sectionIndex)
		s.respondDraft(w, r, http.StatusOK, d, err)
		return true

	case len(parts) == 2 && parts[1] == "items" && r.Method == http.MethodPost:
		var item proposal.Item
		if err := decodeBody(r, &item); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return true
		}
		d, err := s.service.AddItem(r.Context(), session, draftID, sectionIndex, item)
		s.respondDraft(w, r, http.StatusCreated, d, err)
		return true

	case len(parts) == 3 && parts[1] == "items":
		itemIndex, ok := parseIndex(parts[2])
		if !ok {
			writeError(w, http.StatusNotFound, "ITEM_NOT_FOUND", "Item not found", nil)
			return true
		}
		switch r.Method {
		case http.MethodPut:
			var item proposal.Item
			if err := decodeBody(r, &item); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return true
			}
			d, err := s.service.EditItem(r.Context(), session, draftID, sectionIndex, itemIndex, item)
			s.respondDraft(w, r, http.StatusOK, d, err)
			return true
		case http.MethodDelete:
			d, err := s.service.DeleteItem(r.Context(), session, draftID, sectionIndex, itemIndex)
			s.respondDraft(w, r, http.StatusOK, d, err)
			return true
		}
	}
	return false
}

func (s *HTTPServer) handleReconcile(w http.ResponseWriter, r *http.Request, session Session, draftID string) {
	var body struct {
		TargetBudget json.RawMessage `json:"targetBudget"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}

	var target *float64
	if len(body.TargetBudget) > 0 && string(body.TargetBudget) != "null" {
		var raw any
		if err := json.Unmarshal(body.TargetBudget, &raw); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body", nil)
			return
		}
		value := money.Parse(raw)
		target = &value
	}

	d, err := s.service.Reconcile(r.Context(), session, draftID, target)
	s.respondDraft(w, r, http.StatusOK, d, err)
}

func (s *HTTPServer) respondDraft(w http.ResponseWriter, r *http.Request, status int, d draft.Draft, err error) {
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, status, draftPayload(d))
}
