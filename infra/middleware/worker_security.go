package middleware

import "github.com/gofiber/fiber/v2"

// SecurityHeaders adds headers suited to a JSON-only API
func SecurityHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "no-referrer")

		// 캘린더 상태는 매 분 바뀔 수 있다
		c.Set("Cache-Control", "no-store")

		return c.Next()
	}
}
