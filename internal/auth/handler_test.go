package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	h := NewHandler(NewService(NewInMemoryUserRepository()), NewTokens("secret", time.Hour), false)

	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	r.POST("/auth/logout", h.Logout)
	return r
}

func doJSON(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterAndLoginJSON(t *testing.T) {
	r := newTestRouter()

	w := doJSON(r, "/auth/register", `{"name":"Asha","email":"asha@clinic.in","password":"pw"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(r, "/auth/register", `{"name":"Asha","email":"asha@clinic.in","password":"pw"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate register: expected 409, got %d", w.Code)
	}

	w = doJSON(r, "/auth/login", `{"email":"asha@clinic.in","password":"pw"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["token"] == "" {
		t.Fatal("expected token in response")
	}

	var found bool
	for _, c := range w.Result().Cookies() {
		if c.Name == CookieName && c.Value == body["token"] && c.HttpOnly {
			found = true
		}
	}
	if !found {
		t.Fatal("expected httpOnly token cookie")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	r := newTestRouter()
	doJSON(r, "/auth/register", `{"name":"Asha","email":"asha@clinic.in","password":"pw"}`)

	w := doJSON(r, "/auth/login", `{"email":"asha@clinic.in","password":"nope"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRegisterMissingFieldsJSON(t *testing.T) {
	r := newTestRouter()

	w := doJSON(r, "/auth/register", `{"email":"asha@clinic.in"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestLoginFormRedirects(t *testing.T) {
	r := newTestRouter()
	doJSON(r, "/auth/register", `{"name":"Asha","email":"asha@clinic.in","password":"pw"}`)

	form := url.Values{"email": {"asha@clinic.in"}, "password": {"pw"}}
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "text/html")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/" {
		t.Fatalf("expected redirect to /, got %s", loc)
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	r := newTestRouter()

	w := doJSON(r, "/auth/logout", `{}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == CookieName && c.MaxAge >= 0 {
			t.Fatalf("cookie not cleared: %+v", c)
		}
	}
}
