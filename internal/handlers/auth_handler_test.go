package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/kevinpb-93/employee-tracking-system/internal/models"
	"github.com/kevinpb-93/employee-tracking-system/pkg/utils"
)

type stubUserReader struct {
	byUsername map[string]*models.User
	byID       map[string]*models.User
}

func (s *stubUserReader) GetByID(_ context.Context, id string) (*models.User, error) {
	if user, ok := s.byID[id]; ok {
		return user, nil
	}
	return nil, pgx.ErrNoRows
}

func (s *stubUserReader) GetByUsername(_ context.Context, username string) (*models.User, error) {
	if user, ok := s.byUsername[username]; ok {
		return user, nil
	}
	return nil, pgx.ErrNoRows
}

func TestLoginReturnsTokenForValidCredentials(t *testing.T) {
	hash, err := utils.HashPassword("secreta")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	reader := &stubUserReader{byUsername: map[string]*models.User{
		"ana": {ID: "emp-1", Name: "Ana", Username: "ana", PasswordHash: hash, Role: models.RoleEmployee},
	}}
	handler := NewAuthHandler(reader, "test-secret")

	app := fiber.New()
	app.Post("/api/auth/login", handler.Login)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"username":"ana","password":"secreta"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if body.Token == "" || body.User.ID != "emp-1" {
		t.Fatalf("unexpected response: %+v", body)
	}

	claims, err := utils.ValidateToken(body.Token, "test-secret")
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != "emp-1" || claims.Role != models.RoleEmployee {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestLoginRejectsBadPasswordAndUnknownUser(t *testing.T) {
	hash, err := utils.HashPassword("secreta")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	reader := &stubUserReader{byUsername: map[string]*models.User{
		"ana": {ID: "emp-1", Username: "ana", PasswordHash: hash, Role: models.RoleEmployee},
	}}
	handler := NewAuthHandler(reader, "test-secret")

	app := fiber.New()
	app.Post("/api/auth/login", handler.Login)

	for _, payload := range []string{
		`{"username":"ana","password":"wrong"}`,
		`{"username":"ghost","password":"secreta"}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401 for %s, got %d", payload, resp.StatusCode)
		}
	}
}

func TestMeReturnsAuthenticatedUser(t *testing.T) {
	reader := &stubUserReader{byID: map[string]*models.User{
		"emp-1": {ID: "emp-1", Name: "Ana", Role: models.RoleEmployee},
	}}
	handler := NewAuthHandler(reader, "test-secret")

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", "emp-1")
		c.Locals("role", models.RoleEmployee)
		return c.Next()
	})
	app.Get("/api/auth/me", handler.Me)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		User models.User `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if body.User.Name != "Ana" {
		t.Fatalf("unexpected user: %+v", body.User)
	}
}
