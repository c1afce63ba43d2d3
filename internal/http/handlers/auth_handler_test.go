package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-rag-chatbot/internal/token"
)

func newAuthRouter(t *testing.T) *gin.Engine {
	t.Helper()
	creds, err := token.NewStaticCredentials("johndoe", "secretpassword")
	if err != nil {
		t.Fatalf("NewStaticCredentials: %v", err)
	}
	svc := token.NewService("test-signing-key", 30*time.Minute, creds)

	r := gin.New()
	h := NewAuth(svc)
	r.POST("/token", h.PostToken)
	r.GET("/verify", h.GetVerify)
	return r
}

func postForm(t *testing.T, r *gin.Engine, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPostToken_IssueAndVerifyFlow(t *testing.T) {
	r := newAuthRouter(t)

	w := postForm(t, r, "/token", url.Values{
		"username": {"johndoe"},
		"password": {"secretpassword"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var tr TokenResponse
	if err := json.Unmarshal(w.Body.Bytes(), &tr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tr.AccessToken == "" || tr.TokenType != "bearer" {
		t.Fatalf("body = %+v", tr)
	}

	// The issued token must pass /verify on the same service.
	req := httptest.NewRequest(http.MethodGet, "/verify", nil)
	req.Header.Set("Authorization", "Bearer "+tr.AccessToken)
	vw := httptest.NewRecorder()
	r.ServeHTTP(vw, req)
	if vw.Code != http.StatusOK {
		t.Fatalf("verify status = %d, body = %s", vw.Code, vw.Body.String())
	}
	var vr VerifyResponse
	if err := json.Unmarshal(vw.Body.Bytes(), &vr); err != nil {
		t.Fatalf("decode verify: %v", err)
	}
	if vr.Username != "johndoe" {
		t.Fatalf("username = %q", vr.Username)
	}
}

func TestPostToken_WrongCredentials(t *testing.T) {
	r := newAuthRouter(t)

	w := postForm(t, r, "/token", url.Values{
		"username": {"johndoe"},
		"password": {"wrong"},
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if got := w.Header().Get("WWW-Authenticate"); got != "Bearer" {
		t.Fatalf("WWW-Authenticate = %q", got)
	}
	if e := decodeError(t, w); e.Code != ErrCodeUnauthorized {
		t.Fatalf("code = %s", e.Code)
	}
}

func TestPostToken_MissingFields(t *testing.T) {
	r := newAuthRouter(t)

	for _, form := range []url.Values{
		{},
		{"username": {"johndoe"}},
		{"password": {"secretpassword"}},
	} {
		w := postForm(t, r, "/token", form)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("form %v: status = %d, want 400", form, w.Code)
		}
	}
}

func TestGetVerify_Failures(t *testing.T) {
	r := newAuthRouter(t)

	cases := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"wrong scheme", "Basic abc"},
		{"garbage token", "Bearer garbage"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/verify", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", w.Code)
			}
			if got := w.Header().Get("WWW-Authenticate"); got != "Bearer" {
				t.Fatalf("WWW-Authenticate = %q", got)
			}
		})
	}
}
