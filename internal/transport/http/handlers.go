package http

import (
	"net/http"
	"time"

	"contest-service/internal/app"
	"contest-service/internal/domain"
	"github.com/go-chi/chi/v5"
)

// Handler serves the REST API on top of ContestService.
type Handler struct {
	service         *app.ContestService
	defaultDuration time.Duration
}

type joinRequest struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

type joinResponse struct {
	SessionID string           `json:"sessionId"`
	View      domain.ViewModel `json:"view"`
}

type submitRequest struct {
	ProblemID string `json:"problemId"`
	Answer    string `json:"answer"`
}

type startRequest struct {
	ContestID       string `json:"contestId"`
	DurationMinutes int    `json:"durationMinutes"`
}

type problemRequest struct {
	ContestID string `json:"contestId"`
	Sequence  int    `json:"sequence"`
	Body      string `json:"body"`
	Answer    string `json:"answer"`
	Points    int    `json:"points"`
}

type registerRequest struct {
	Users []joinRequest `json:"users"`
}

func (h *Handler) join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	session, err := h.service.Join(r.Context(), req.UserID, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	vm, err := h.service.View(r.Context(), session)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, joinResponse{SessionID: session.ID(), View: vm})
}

func (h *Handler) session(r *http.Request) (*app.Session, error) {
	return h.service.Session(r.Context(), chi.URLParam(r, "sessionID"))
}

func (h *Handler) view(w http.ResponseWriter, r *http.Request) {
	session, err := h.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	vm, err := h.service.View(r.Context(), session)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, vm)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	session, err := h.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	outcome, err := h.service.Submit(r.Context(), session, req.ProblemID, req.Answer)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, outcome)
}

func (h *Handler) leave(w http.ResponseWriter, r *http.Request) {
	h.service.Leave(r.Context(), chi.URLParam(r, "sessionID"))
	writeSuccess(w, http.StatusOK, nil)
}

func (h *Handler) standings(w http.ResponseWriter, r *http.Request) {
	board, err := h.service.Board(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, board)
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.State(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, state)
}

func (h *Handler) contests(w http.ResponseWriter, r *http.Request) {
	ids, err := h.service.ListContests(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, ids)
}

func (h *Handler) startContest(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	duration := h.defaultDuration
	if req.DurationMinutes != 0 {
		duration = time.Duration(req.DurationMinutes) * time.Minute
	}
	settings, err := h.service.StartContest(r.Context(), req.ContestID, duration)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, settings)
}

func (h *Handler) stopContest(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.StopContest(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, settings)
}

func (h *Handler) resetScores(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ResetScores(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, nil)
}

func (h *Handler) addProblem(w http.ResponseWriter, r *http.Request) {
	var req problemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Points == 0 {
		req.Points = app.DefaultPoints
	}
	problem, err := h.service.AddProblem(r.Context(), domain.Problem{
		ContestID: req.ContestID,
		Sequence:  req.Sequence,
		Body:      req.Body,
		Answer:    req.Answer,
		Points:    req.Points,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, problem)
}

func (h *Handler) registerUsers(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	users := make([]domain.User, 0, len(req.Users))
	for _, u := range req.Users {
		users = append(users, domain.User{UserID: u.UserID, DisplayName: u.Name})
	}
	registered, err := h.service.RegisterUsers(r.Context(), users)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, registered)
}
