package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"exchange_calendar/pkg/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func newTestApp() *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(),
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})
	app.Use(Recover(), RequestID(), SecurityHeaders())
	app.Use(JWTAuth(testSecret, "/health"))

	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/whoami", func(c *fiber.Ctx) error {
		sub, _ := c.Locals("subject").(string)
		return c.SendString(sub)
	})
	app.Get("/missing", func(c *fiber.Ctx) error { return apperr.NotFound("calendar.x") })
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("raw failure") })
	app.Get("/panic", func(c *fiber.Ctx) error { panic("kaboom") })
	return app
}

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func decodeError(t *testing.T, resp *http.Response) ErrorResponse {
	t.Helper()
	body, _ := io.ReadAll(resp.Body)
	var out ErrorResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode %q: %v", body, err)
	}
	return out
}

func TestJWTAuth(t *testing.T) {
	app := newTestApp()
	valid := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
		"sub": "automation",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	expired := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
		"sub": "automation",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	wrongKey := signToken(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"sub": "x"})
	wrongAlg := signToken(t, jwt.SigningMethodHS384, []byte(testSecret), jwt.MapClaims{"sub": "x"})

	tests := []struct {
		name     string
		path     string
		auth     string
		wantCode int
		wantErr  string
	}{
		{"open path", "/health", "", 200, ""},
		{"missing header", "/whoami", "", 401, apperr.CodeUnauthorized},
		{"not bearer", "/whoami", "Basic abc", 401, apperr.CodeUnauthorized},
		{"valid", "/whoami", "Bearer " + valid, 200, ""},
		{"expired", "/whoami", "Bearer " + expired, 401, apperr.CodeTokenExpired},
		{"wrong key", "/whoami", "Bearer " + wrongKey, 401, apperr.CodeInvalidToken},
		{"wrong alg", "/whoami", "Bearer " + wrongAlg, 401, apperr.CodeInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			if resp.StatusCode != tt.wantCode {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantCode)
			}
			if tt.wantErr != "" {
				if got := decodeError(t, resp); got.Error.Code != tt.wantErr {
					t.Errorf("error code = %q, want %q", got.Error.Code, tt.wantErr)
				}
			}
		})
	}

	t.Run("subject stored", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+valid)
		resp, _ := app.Test(req)
		body, _ := io.ReadAll(resp.Body)
		if string(body) != "automation" {
			t.Errorf("subject = %q, want automation", body)
		}
	})
}

func TestErrorHandler(t *testing.T) {
	app := newTestApp()
	token := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"sub": "t"})

	tests := []struct {
		path     string
		wantCode int
		wantErr  string
	}{
		{"/missing", 404, apperr.CodeNotFound},
		{"/boom", 500, apperr.CodeInternalError},
		{"/panic", 500, apperr.CodeInternalError},
		{"/nowhere", 404, apperr.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.Header.Set("Authorization", "Bearer "+token)
			req.Header.Set("X-Request-ID", "req-42")
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			if resp.StatusCode != tt.wantCode {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantCode)
			}
			got := decodeError(t, resp)
			if got.Success || got.Error.Code != tt.wantErr || got.RequestID != "req-42" {
				t.Errorf("response = %+v", got)
			}
			// 내부 에러 메시지는 노출하지 않는다
			if tt.wantCode == 500 && got.Error.Message != "internal server error" {
				t.Errorf("message = %q, want generic internal error", got.Error.Message)
			}
		})
	}
}

func TestRequestID_Generated(t *testing.T) {
	app := newTestApp()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("X-Request-ID not set")
	}
	if resp.Header.Get("Cache-Control") != "no-store" {
		t.Errorf("Cache-Control = %q", resp.Header.Get("Cache-Control"))
	}
}
