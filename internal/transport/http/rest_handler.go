package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"

	"github.com/go-chi/chi/v5"
)

// IdentityHeader carries the participant identity on REST requests.
const IdentityHeader = "X-User-ID"

// RESTHandler exposes session operations as JSON endpoints under
// /quizzes/{quizID}/session.
type RESTHandler struct {
	service *app.SessionService
}

func NewRESTHandler(service *app.SessionService) *RESTHandler {
	return &RESTHandler{service: service}
}

// Routes mounts the session endpoints on r.
func (h *RESTHandler) Routes(r chi.Router) {
	r.Route("/quizzes/{quizID}/session", func(r chi.Router) {
		r.Use(requireIdentity)
		r.Post("/", h.start)
		r.Get("/", h.state)
		r.Delete("/", h.abandon)
		r.Put("/answers/{questionID}", h.answer)
		r.Post("/goto", h.goTo)
		r.Post("/next", h.next)
		r.Post("/previous", h.previous)
		r.Post("/submit", h.submit)
	})
}

func requireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(IdentityHeader) == "" {
			writeError(w, http.StatusBadRequest, "missing "+IdentityHeader+" header")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func params(r *http.Request) (quizID, identity string) {
	return chi.URLParam(r, "quizID"), r.Header.Get(IdentityHeader)
}

func (h *RESTHandler) start(w http.ResponseWriter, r *http.Request) {
	quizID, identity := params(r)
	state, err := h.service.Start(r.Context(), quizID, identity)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, state)
}

func (h *RESTHandler) state(w http.ResponseWriter, r *http.Request) {
	quizID, identity := params(r)
	state, err := h.service.State(r.Context(), quizID, identity)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *RESTHandler) answer(w http.ResponseWriter, r *http.Request) {
	quizID, identity := params(r)
	var body struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid answer body")
		return
	}
	state, err := h.service.Answer(r.Context(), quizID, identity, chi.URLParam(r, "questionID"), body.Value)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *RESTHandler) goTo(w http.ResponseWriter, r *http.Request) {
	quizID, identity := params(r)
	var body struct {
		Index int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid goto body")
		return
	}
	state, err := h.service.GoTo(r.Context(), quizID, identity, body.Index)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *RESTHandler) next(w http.ResponseWriter, r *http.Request) {
	quizID, identity := params(r)
	state, err := h.service.Next(r.Context(), quizID, identity)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *RESTHandler) previous(w http.ResponseWriter, r *http.Request) {
	quizID, identity := params(r)
	state, err := h.service.Previous(r.Context(), quizID, identity)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *RESTHandler) submit(w http.ResponseWriter, r *http.Request) {
	quizID, identity := params(r)
	result, err := h.service.Submit(r.Context(), quizID, identity)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resultPayload(result))
}

func (h *RESTHandler) abandon(w http.ResponseWriter, r *http.Request) {
	quizID, identity := params(r)
	if err := h.service.Abandon(r.Context(), quizID, identity); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrQuizNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrSessionClosed):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidQuiz):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("request failed: %v", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorPayload{Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}
