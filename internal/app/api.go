package app

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/lectern-ai/lectern/internal/transcript"
	"github.com/lectern-ai/lectern/internal/tutor"
)

// lectureStatus is the JSON body for GET /v1/lecture.
type lectureStatus struct {
	State      string `json:"state"`
	SlideIndex int    `json:"slide_index"`
	SlideCount int    `json:"slide_count"`
	LectureID  string `json:"lecture_id,omitempty"`
	DeckTitle  string `json:"deck_title"`
}

// registerControlRoutes exposes the lecture control surface. The endpoints
// map 1:1 onto the tutor's public operations; no lecture logic lives here.
func (a *App) registerControlRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/lecture", a.handleLectureStatus)
	mux.HandleFunc("POST /v1/lecture/start", a.handleLectureStart)
	mux.HandleFunc("POST /v1/lecture/stop", a.handleLectureStop)
	mux.HandleFunc("POST /v1/lecture/slide", a.handleGoToSlide)
	mux.HandleFunc("POST /v1/lecture/explain", a.handleExplain)
	mux.HandleFunc("GET /v1/lecture/transcript", a.handleTranscript)
}

func (a *App) handleLectureStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, lectureStatus{
		State:      a.tutor.State().String(),
		SlideIndex: a.tutor.SlideIndex(),
		SlideCount: a.deck.Len(),
		LectureID:  a.tutor.LectureID(),
		DeckTitle:  a.deck.Title(),
	})
}

func (a *App) handleLectureStart(w http.ResponseWriter, r *http.Request) {
	if err := a.tutor.StartLecture(r.Context(), a.deck); err != nil {
		if errors.Is(err, tutor.ErrLectureActive) {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeError(w, http.StatusBadGateway, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handleLectureStop(w http.ResponseWriter, _ *http.Request) {
	if err := a.tutor.Stop(); err != nil {
		// The lecture is already stopped; the session close error is worth
		// surfacing but not a failure of the operation.
		slog.Warn("session close during stop", "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handleGoToSlide(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := a.tutor.GoToSlide(req.Index); err != nil {
		if errors.Is(err, tutor.ErrNoLecture) {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handleExplain(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		writeError(w, http.StatusBadRequest, errors.New("app: explain needs a non-empty text field"))
		return
	}
	a.tutor.Explain(req.Text)
	w.WriteHeader(http.StatusAccepted)
}

// transcriptLimit caps how many entries one transcript request returns.
const transcriptLimit = 50

// handleTranscript returns recent transcript entries for the current lecture,
// or full-text matches when a q parameter is given. A lecture_id parameter
// selects a past lecture instead of the running one.
func (a *App) handleTranscript(w http.ResponseWriter, r *http.Request) {
	lectureID := r.URL.Query().Get("lecture_id")
	if lectureID == "" {
		lectureID = a.tutor.LectureID()
	}
	if lectureID == "" {
		writeError(w, http.StatusConflict, errors.New("app: no lecture to fetch a transcript for"))
		return
	}

	var (
		entries []transcript.Entry
		err     error
	)
	if q := r.URL.Query().Get("q"); q != "" {
		entries, err = a.store.Search(r.Context(), lectureID, q, transcriptLimit)
	} else {
		entries, err = a.store.Recent(r.Context(), lectureID, transcriptLimit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if entries == nil {
		entries = []transcript.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
