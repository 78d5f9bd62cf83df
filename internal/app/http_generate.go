package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"proposals/api/internal/generation"
	"proposals/api/internal/money"
	"proposals/api/internal/proposal"
)

func wantsEventStream(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}

func (s *HTTPServer) handleGenerate(w http.ResponseWriter, r *http.Request, session Session) {
	var in generation.Input
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}

	flusher, canFlush := w.(http.Flusher)
	if !wantsEventStream(r) || !canFlush {
		sections, err := s.service.Generate(r.Context(), session, in, nil)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"sections": sections,
			"total":    money.Format(proposal.Total(sections)),
		})
		return
	}

	// Validation and plan errors are still reported as plain JSON; the
	// stream only starts once the first update arrives.
	started := false
	start := func() {
		if started {
			return
		}
		started = true
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
	}

	sections, err := s.service.Generate(r.Context(), session, in, func(update generation.Update) {
		start()
		writeEvent(w, "", update)
		flusher.Flush()
	})
	if err != nil {
		if !started {
			s.fail(w, r, err)
			return
		}
		status, code, message, _ := mapError(err)
		writeEvent(w, "error", map[string]any{"status": status, "code": code, "error": message})
		flusher.Flush()
		return
	}

	start()
	writeEvent(w, "", generation.Update{Sections: sections, Progress: 100})
	_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func writeEvent(w http.ResponseWriter, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if event != "" {
		_, _ = fmt.Fprintf(w, "event: %s\n", event)
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}
