package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(cfg Config) *fiber.App {
	app := fiber.New()
	app.Use(New(cfg))
	app.Get("/*", func(c *fiber.Ctx) error { return c.SendString("ok") })
	return app
}

func TestAuth(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		path   string
		header map[string]string
		want   int
	}{
		{"Disabled", Config{}, "/cards", nil, fiber.StatusOK},
		{"MissingKey", Config{ApiKey: "secret"}, "/cards", nil, fiber.StatusUnauthorized},
		{"WrongKey", Config{ApiKey: "secret"}, "/cards", map[string]string{Header: "nope"}, fiber.StatusUnauthorized},
		{"HeaderKey", Config{ApiKey: "secret"}, "/cards", map[string]string{Header: "secret"}, fiber.StatusOK},
		{"BearerKey", Config{ApiKey: "secret"}, "/cards", map[string]string{"Authorization": "Bearer secret"}, fiber.StatusOK},
		{"PublicPath", Config{ApiKey: "secret", Public: []string{"/metrics"}}, "/metrics", nil, fiber.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			resp, err := newApp(tt.cfg).Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
