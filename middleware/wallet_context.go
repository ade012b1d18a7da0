// middleware/wallet_context.go
package middleware

import (
	"log"
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
)

var walletPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// WalletContextMiddleware extracts the caller's wallet set by the Gateway.
// Routes behind it require X-User-Wallet; the engine's claim endpoint does
// NOT use this — claims prove identity by signature, not by header.
func WalletContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		wallet := c.Get("X-User-Wallet")
		if wallet == "" || !walletPattern.MatchString(wallet) {
			log.Printf("❌ [WALLET_CTX] X-User-Wallet missing or malformed on secured route: %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-Wallet — request must come through gateway with auth context",
			})
		}

		// Attach to ctx for handlers (lowercased, it is a storage key)
		c.Locals("user_wallet", strings.ToLower(wallet))

		return c.Next()
	}
}
