package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quiz-room-service/internal/app"
	"quiz-room-service/internal/auth"
	"quiz-room-service/internal/domain"
	"quiz-room-service/internal/infra/memory"
)

func newAPITestServer(t *testing.T) *httptest.Server {
	t.Helper()
	tokens := auth.NewService("test-secret", time.Hour)
	examStore := memory.NewExamStore()
	examRepo := memory.NewExamRepository(examStore, time.Minute)
	exams := app.NewExamService(examRepo, examStore)
	accounts := app.NewAccountService(memory.NewUserStore(), tokens)
	rooms := app.NewRoomService(memory.NewRoomStore(), examRepo)

	api := NewAPIHandler(accounts, exams, rooms, tokens)
	ws := NewWSHandler(rooms, tokens)
	server := httptest.NewServer(NewRouter(api, ws))
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func registerUser(t *testing.T, server *httptest.Server, username string) string {
	t.Helper()
	resp := doJSON(t, http.MethodPost, server.URL+"/api/auth/register", "", credentialsRequest{
		Username: username, Password: "hunter2", UserImage: 3,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: status %d", username, resp.StatusCode)
	}
	return decodeBody[tokenResponse](t, resp).Token
}

func TestRegisterAndLogin(t *testing.T) {
	server := newAPITestServer(t)

	token := registerUser(t, server, "alice")
	if token == "" {
		t.Fatalf("expected token from register")
	}

	// Duplicate username is rejected.
	resp := doJSON(t, http.MethodPost, server.URL+"/api/auth/register", "", credentialsRequest{
		Username: "alice", Password: "other",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate register, got %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, server.URL+"/api/auth/login", "", credentialsRequest{
		Username: "alice", Password: "hunter2",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 login, got %d", resp.StatusCode)
	}
	if decodeBody[tokenResponse](t, resp).Token == "" {
		t.Fatalf("expected token from login")
	}

	resp = doJSON(t, http.MethodPost, server.URL+"/api/auth/login", "", credentialsRequest{
		Username: "alice", Password: "wrong",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password, got %d", resp.StatusCode)
	}
}

func TestRegisterValidatesInput(t *testing.T) {
	server := newAPITestServer(t)
	resp := doJSON(t, http.MethodPost, server.URL+"/api/auth/register", "", credentialsRequest{Username: "alice"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without password, got %d", resp.StatusCode)
	}
}

func TestExamEndpointsRequireAuth(t *testing.T) {
	server := newAPITestServer(t)
	resp := doJSON(t, http.MethodGet, server.URL+"/api/exams", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
}

func TestExamCRUD(t *testing.T) {
	server := newAPITestServer(t)
	token := registerUser(t, server, "alice")

	resp := doJSON(t, http.MethodPost, server.URL+"/api/exams", token, domain.Exam{
		Title: "Capitals",
		Questions: []domain.Question{
			{Prompt: "Capital of France?", Options: []domain.Option{
				{Text: "Paris", Correct: true},
				{Text: "Lyon"},
			}},
		},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create exam: status %d", resp.StatusCode)
	}
	created := decodeBody[domain.Exam](t, resp)
	if created.ID == "" || created.Questions[0].ID == "" {
		t.Fatalf("expected generated ids, got %+v", created)
	}
	if created.Questions[0].Points != 1 {
		t.Fatalf("expected default points, got %d", created.Questions[0].Points)
	}

	resp = doJSON(t, http.MethodGet, server.URL+"/api/exams", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list exams: status %d", resp.StatusCode)
	}
	if list := decodeBody[[]domain.Exam](t, resp); len(list) != 1 || list[0].ID != created.ID {
		t.Fatalf("expected one owned exam, got %+v", list)
	}

	resp = doJSON(t, http.MethodGet, server.URL+"/api/exams/"+created.ID, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get exam: status %d", resp.StatusCode)
	}

	created.Title = "European Capitals"
	resp = doJSON(t, http.MethodPut, server.URL+"/api/exams/"+created.ID, token, created)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update exam: status %d", resp.StatusCode)
	}
	resp = doJSON(t, http.MethodGet, server.URL+"/api/exams/"+created.ID, token, nil)
	if got := decodeBody[domain.Exam](t, resp); got.Title != "European Capitals" {
		t.Fatalf("expected updated title visible, got %q", got.Title)
	}

	resp = doJSON(t, http.MethodDelete, server.URL+"/api/exams/"+created.ID, token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete exam: status %d", resp.StatusCode)
	}
	resp = doJSON(t, http.MethodGet, server.URL+"/api/exams/"+created.ID, token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.StatusCode)
	}
}

func TestExamOwnershipEnforced(t *testing.T) {
	server := newAPITestServer(t)
	aliceToken := registerUser(t, server, "alice")
	bobToken := registerUser(t, server, "bob")

	resp := doJSON(t, http.MethodPost, server.URL+"/api/exams", aliceToken, domain.Exam{Title: "Private"})
	created := decodeBody[domain.Exam](t, resp)

	resp = doJSON(t, http.MethodPut, server.URL+"/api/exams/"+created.ID, bobToken, created)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 updating someone else's exam, got %d", resp.StatusCode)
	}
	resp = doJSON(t, http.MethodDelete, server.URL+"/api/exams/"+created.ID, bobToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 deleting someone else's exam, got %d", resp.StatusCode)
	}
}

func TestCreateRoomReturnsPIN(t *testing.T) {
	server := newAPITestServer(t)
	token := registerUser(t, server, "alice")

	resp := doJSON(t, http.MethodPost, server.URL+"/api/exams", token, domain.Exam{Title: "Capitals"})
	exam := decodeBody[domain.Exam](t, resp)

	resp = doJSON(t, http.MethodPost, server.URL+"/api/rooms", token, createRoomRequest{ExamID: exam.ID})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create room: status %d", resp.StatusCode)
	}
	room := decodeBody[roomResponse](t, resp)
	if len(room.RoomID) != 6 {
		t.Fatalf("expected 6-digit room PIN, got %q", room.RoomID)
	}

	resp = doJSON(t, http.MethodPost, server.URL+"/api/rooms", token, createRoomRequest{ExamID: "missing"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown exam, got %d", resp.StatusCode)
	}
}
