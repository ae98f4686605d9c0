package handlers

import (
	"errors"
	"fmt"
	"html"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/levishimwe/bookswap/internal/services"
)

// ActionHandler serves the emailed action links. One endpoint, one query
// parameter: the token is the whole credential.
type ActionHandler struct {
	tokenService services.ITokenService
}

// NewActionHandler creates a new ActionHandler.
func NewActionHandler(tokenService services.ITokenService) *ActionHandler {
	return &ActionHandler{tokenService: tokenService}
}

// HandleAction consumes an action token and applies its state transition.
//
// Responses: 400 for a missing/unknown token or unknown target, 410 for a
// used or expired token, 200 with a small HTML confirmation on success,
// 500 otherwise. On 500 the token was not consumed (the transaction rolled
// back), so re-clicking the link retries safely.
func (h *ActionHandler) HandleAction(c *gin.Context) {
	tokenID := c.Query("token")
	if tokenID == "" {
		c.String(http.StatusBadRequest, "Missing token")
		return
	}

	token, err := h.tokenService.ConsumeAndApply(c.Request.Context(), tokenID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTokenNotFound):
			c.String(http.StatusBadRequest, "Invalid token")
		case errors.Is(err, services.ErrTokenAlreadyUsed):
			c.String(http.StatusGone, "This action link has already been used")
		case errors.Is(err, services.ErrTokenExpired):
			c.String(http.StatusGone, "This action link has expired")
		case errors.Is(err, services.ErrUnknownTarget):
			c.String(http.StatusBadRequest, "Unknown action target")
		default:
			_ = c.Error(err)
			c.String(http.StatusInternalServerError, "Internal error")
		}
		return
	}

	page := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><title>BookSwap</title></head>
<body>
<h2>Thank you!</h2>
<p>Your decision has been recorded: <b>%s</b>.</p>
<p>You can close this page now.</p>
</body>
</html>`, html.EscapeString(string(token.Action)))

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}
