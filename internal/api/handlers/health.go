// Package handlers provides HTTP request handlers for the API endpoints.
package handlers

import (
	"net/http"

	"github.com/bnb-reservations/backend/internal/storage"
	"github.com/bnb-reservations/backend/internal/websocket"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status      string `json:"status"`
	DBConnected bool   `json:"db_connected"`
	WSClients   int    `json:"ws_clients"`
}

// HealthCheck reports database connectivity and connected WebSocket clients.
func HealthCheck(db *storage.DB, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbConnected := db.PingContext(r.Context()) == nil

		status := "healthy"
		code := http.StatusOK
		if !dbConnected {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		resp := HealthResponse{
			Status:      status,
			DBConnected: dbConnected,
		}
		if hub != nil {
			resp.WSClients = hub.ClientCount()
		}

		writeJSON(w, code, resp)
	}
}
