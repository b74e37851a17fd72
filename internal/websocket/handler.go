package websocket

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/tripkeep/internal/auth"
)

// HandleWebSocket upgrades authenticated requests and runs them as hub
// clients. originPatterns lists extra allowed Origin hosts.
func HandleWebSocket(hub *Hub, originPatterns []string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := auth.Username(r.Context())
		if user == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{OriginPatterns: originPatterns})
		if err != nil {
			logger.Warn("websocket accept", "user", user, "error", err)
			return
		}
		defer conn.CloseNow()

		NewClient(hub, user, conn).Run(r.Context())
	}
}
