// Package rayid tags every request with a unique id.
package rayid

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	// Header is the request and response header carrying the id.
	Header = "X-Ray-ID"
	// LocalsKey is the fiber.Ctx locals key holding the id.
	LocalsKey = "ray_id"
)

// New returns a middleware that reuses an incoming X-Ray-ID or generates one,
// stores it in the request locals and echoes it in the response.
func New() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(Header)
		if id == "" {
			id = uuid.NewString()
		}
		c.Locals(LocalsKey, id)
		c.Set(Header, id)
		return c.Next()
	}
}
