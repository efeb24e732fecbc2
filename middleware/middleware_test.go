package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

func TestRequestLoggerStampsIDAndLogs(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(&buf)

	app := fiber.New()
	app.Use(RequestLogger(log))
	var seen string
	app.Get("/ok", func(c *fiber.Ctx) error {
		seen = RequestID(c)
		return c.SendStatus(fiber.StatusTeapot)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/ok", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if seen == "" || resp.Header.Get(fiber.HeaderXRequestID) != seen {
		t.Fatalf("request id not propagated: locals=%q header=%q", seen, resp.Header.Get(fiber.HeaderXRequestID))
	}

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if line["request_id"] != seen || line["status_code"] != float64(fiber.StatusTeapot) || line["level"] != "warning" {
		t.Fatalf("unexpected log line %v", line)
	}
}

func TestRequestLoggerKeepsIncomingID(t *testing.T) {
	log := logrus.New()
	log.SetOutput(&bytes.Buffer{})
	app := fiber.New()
	app.Use(RequestLogger(log))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(RequestID(c)) })

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(fiber.HeaderXRequestID, "abc-123")
	resp, _ := app.Test(req)
	if resp.Header.Get(fiber.HeaderXRequestID) != "abc-123" {
		t.Fatalf("expected incoming id to be kept, got %q", resp.Header.Get(fiber.HeaderXRequestID))
	}
}

func TestRequestLoggerLogsHandlerErrorsWithFinalStatus(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(&buf)

	app := fiber.New()
	app.Use(RequestLogger(log))
	app.Get("/fail", func(c *fiber.Ctx) error { return errors.New("kaboom") })

	resp, _ := app.Test(httptest.NewRequest("GET", "/fail", nil))
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	out := buf.String()
	if !strings.Contains(out, `"error":"kaboom"`) || !strings.Contains(out, `"status_code":500`) {
		t.Fatalf("unexpected log output %q", out)
	}
}

func TestAdminToken(t *testing.T) {
	app := fiber.New()
	app.Put("/guarded", AdminToken("s3cret"), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })
	app.Put("/open", AdminToken(""), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	cases := []struct {
		path, auth string
		want       int
	}{
		{"/guarded", "", fiber.StatusUnauthorized},
		{"/guarded", "Bearer wrong", fiber.StatusUnauthorized},
		{"/guarded", "s3cret", fiber.StatusUnauthorized},
		{"/guarded", "Bearer s3cret", fiber.StatusNoContent},
		{"/open", "", fiber.StatusNoContent},
	}
	for _, tc := range cases {
		req := httptest.NewRequest("PUT", tc.path, nil)
		if tc.auth != "" {
			req.Header.Set("Authorization", tc.auth)
		}
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		if resp.StatusCode != tc.want {
			t.Errorf("%s with %q: got %d, want %d", tc.path, tc.auth, resp.StatusCode, tc.want)
		}
	}
}
