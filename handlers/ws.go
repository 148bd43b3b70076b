package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/LovationAdmin/budget-ledger/middleware"
	"github.com/LovationAdmin/budget-ledger/utils"

	"github.com/gin-gonic/gin"
	"github.com/olahol/melody"
)

// WSHandler pushes "ledger changed" signals to a user's open sessions.
type WSHandler struct {
	M *melody.Melody
}

func NewWSHandler() *WSHandler {
	m := melody.New()
	m.Config.MaxMessageSize = 1024
	// Keep-alive for hosted proxies that drop idle connections.
	m.Config.PingPeriod = 30 * time.Second
	m.Config.PongWait = 60 * time.Second

	m.HandleConnect(func(s *melody.Session) {
		ownerID, _ := s.Get("owner_id")
		id, _ := ownerID.(string)
		utils.LogWebSocket("connected", id)
	})
	m.HandleDisconnect(func(s *melody.Session) {
		ownerID, _ := s.Get("owner_id")
		id, _ := ownerID.(string)
		utils.LogWebSocket("disconnected", id)
	})
	m.HandleError(func(s *melody.Session, err error) {
		log.Printf("❌ WebSocket Error: %v", err)
	})

	return &WSHandler{M: m}
}

// HandleWS upgrades the request and subscribes it to the caller's ledger.
func (h *WSHandler) HandleWS(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	if err := h.M.HandleRequestWithKeys(c.Writer, c.Request, map[string]interface{}{"owner_id": userID}); err != nil {
		log.Printf("❌ Failed to upgrade websocket: %v", err)
	}
}

type ledgerSignal struct {
	Type string `json:"type"`
	At   string `json:"at"`
}

// NotifyLedgerChanged implements services.LedgerNotifier.
func (h *WSHandler) NotifyLedgerChanged(ownerID string, reason string) {
	msg, err := json.Marshal(ledgerSignal{Type: reason, At: time.Now().UTC().Format(time.RFC3339)})
	if err != nil {
		return
	}
	err = h.M.BroadcastFilter(msg, func(s *melody.Session) bool {
		id, exists := s.Get("owner_id")
		return exists && id == ownerID
	})
	if err != nil {
		log.Printf("⚠️ Error broadcasting to user %s: %v", utils.MaskID(ownerID), err)
	}
}

// Close disconnects every session.
func (h *WSHandler) Close() error {
	return h.M.Close()
}
