package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"quiz-room-service/internal/app"
	"quiz-room-service/internal/auth"
	"quiz-room-service/internal/domain"
)

// APIHandler serves the REST surface: auth, exam CRUD, and room creation.
type APIHandler struct {
	accounts *app.AccountService
	exams    *app.ExamService
	rooms    *app.RoomService
	tokens   *auth.Service
}

func NewAPIHandler(accounts *app.AccountService, exams *app.ExamService, rooms *app.RoomService, tokens *auth.Service) *APIHandler {
	return &APIHandler{accounts: accounts, exams: exams, rooms: rooms, tokens: tokens}
}

type credentialsRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	UserImage int    `json:"userImage"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type roomResponse struct {
	RoomID string `json:"roomId"`
}

type createRoomRequest struct {
	ExamID string `json:"examId"`
}

type errorResponse struct {
	Message string `json:"message"`
}

func (h *APIHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	token, err := h.accounts.Register(r.Context(), req.Username, req.Password, req.UserImage)
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	respondJSON(w, http.StatusCreated, tokenResponse{Token: token})
}

func (h *APIHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	token, err := h.accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "login failed")
		return
	}
	respondJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (h *APIHandler) CreateExam(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())
	var exam domain.Exam
	if err := json.NewDecoder(r.Body).Decode(&exam); err != nil || exam.Title == "" {
		respondError(w, http.StatusBadRequest, "exam title is required")
		return
	}
	created, err := h.exams.Create(r.Context(), userID, exam)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "could not save exam")
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *APIHandler) ListExams(w http.ResponseWriter, r *http.Request) {
	exams, err := h.exams.List(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "could not list exams")
		return
	}
	respondJSON(w, http.StatusOK, exams)
}

func (h *APIHandler) GetExam(w http.ResponseWriter, r *http.Request) {
	exam, err := h.exams.Get(r.Context(), chi.URLParam(r, "examID"))
	if err != nil {
		if errors.Is(err, domain.ErrExamNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "could not load exam")
		return
	}
	respondJSON(w, http.StatusOK, exam)
}

func (h *APIHandler) UpdateExam(w http.ResponseWriter, r *http.Request) {
	var exam domain.Exam
	if err := json.NewDecoder(r.Body).Decode(&exam); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	exam.ID = chi.URLParam(r, "examID")
	if err := h.exams.Update(r.Context(), userIDFrom(r.Context()), exam); err != nil {
		respondExamError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, exam)
}

func (h *APIHandler) DeleteExam(w http.ResponseWriter, r *http.Request) {
	if err := h.exams.Delete(r.Context(), userIDFrom(r.Context()), chi.URLParam(r, "examID")); err != nil {
		respondExamError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateRoom opens a room for an exam; the caller becomes its creator.
func (h *APIHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ExamID == "" {
		respondError(w, http.StatusBadRequest, "examId is required")
		return
	}
	roomID, err := h.rooms.Create(r.Context(), req.ExamID, userIDFrom(r.Context()))
	if err != nil {
		if errors.Is(err, domain.ErrExamNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "could not create room")
		return
	}
	respondJSON(w, http.StatusCreated, roomResponse{RoomID: roomID})
}

func respondExamError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrExamNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrNotOwner):
		respondError(w, http.StatusForbidden, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "exam operation failed")
	}
}

type contextKey string

const userIDKey contextKey = "userID"

// RequireAuth verifies the bearer token and stashes the user id in the request context.
func (h *APIHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		claims, err := h.tokens.Verify(raw)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "missing or invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Message: message})
}
