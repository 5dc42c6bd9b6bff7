package sharing

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"

	"github.com/cipherhub/cipherhub/pkg/auth"
	"github.com/cipherhub/cipherhub/pkg/middleware"
)

func newTestRouter(t *testing.T) (*mux.Router, sqlmock.Sqlmock) {
	t.Helper()

	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT uid, email, is_admin, created_at FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"uid", "email", "is_admin", "created_at"}).
			AddRow("u1", "u1@example.com", false, time.Now()))

	verifier, err := auth.NewTokenVerifier(db)
	if err != nil {
		t.Fatalf("NewTokenVerifier failed: %v", err)
	}

	router := mux.NewRouter()
	NewHandlers(NewService(db)).
		RegisterRoutes(router, middleware.NewAuthMiddleware(verifier))
	return router, mock
}

func TestJoin_Conflict(t *testing.T) {
	router, mock := newTestRouter(t)

	mock.ExpectQuery("SELECT id, title FROM ciphers WHERE share_code").
		WithArgs("code-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title"}).AddRow("c1", "Vigenere"))
	mock.ExpectExec("INSERT INTO cipher_collaborators").
		WithArgs("c1", "u1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	req := httptest.NewRequest(http.MethodPost, "/api/ciphers/join",
		strings.NewReader(`{"shareCode":"code-1"}`))
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("Expected 409, got %d", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestJoin_Unauthenticated(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/ciphers/join",
		strings.NewReader(`{"shareCode":"code-1"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", rec.Code)
	}
}

func TestJoin_MissingCode(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/ciphers/join",
		strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}
