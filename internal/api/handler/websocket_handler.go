package handler

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"parqueadero/internal/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // los tableros se sirven desde otro origen
	},
}

// CellUpdateNotification es el mensaje que reciben los tableros cada vez
// que una celda cambia de estado.
type CellUpdateNotification struct {
	Type string      `json:"tipo"`
	Cell domain.Cell `json:"celda"`
}

// WebSocketManager mantiene las conexiones de los tableros y les difunde
// los cambios de estado de las celdas.
type WebSocketManager struct {
	clients    map[*websocket.Conn]bool
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan []byte
	mutex      sync.RWMutex
	logger     *zap.Logger
}

func NewWebSocketManager(logger *zap.Logger) *WebSocketManager {
	return &WebSocketManager{
		clients:    make(map[*websocket.Conn]bool),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		broadcast:  make(chan []byte, 16),
		logger:     logger,
	}
}

func (wsm *WebSocketManager) Start() {
	for {
		select {
		case client := <-wsm.register:
			wsm.mutex.Lock()
			wsm.clients[client] = true
			total := len(wsm.clients)
			wsm.mutex.Unlock()
			wsm.logger.Info("tablero conectado", zap.Int("total", total))

		case client := <-wsm.unregister:
			wsm.mutex.Lock()
			if _, ok := wsm.clients[client]; ok {
				delete(wsm.clients, client)
				client.Close()
			}
			total := len(wsm.clients)
			wsm.mutex.Unlock()
			wsm.logger.Info("tablero desconectado", zap.Int("total", total))

		case message := <-wsm.broadcast:
			wsm.mutex.Lock()
			for client := range wsm.clients {
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					wsm.logger.Warn("escribiendo al tablero", zap.Error(err))
					client.Close()
					delete(wsm.clients, client)
				}
			}
			wsm.mutex.Unlock()
		}
	}
}

// NotifyCellUpdate implementa service.CellNotifier. Si el canal está lleno
// el mensaje se descarta; los tableros igual consultan /api/celdas/estado.
func (wsm *WebSocketManager) NotifyCellUpdate(cell domain.Cell) {
	message, err := json.Marshal(CellUpdateNotification{Type: "celda_actualizada", Cell: cell})
	if err != nil {
		wsm.logger.Error("serializando la notificación de celda", zap.Error(err))
		return
	}
	select {
	case wsm.broadcast <- message:
	default:
		wsm.logger.Warn("canal de difusión lleno, se descarta el mensaje")
	}
}

type WebSocketHandler struct {
	wsManager *WebSocketManager
	logger    *zap.Logger
}

func NewWebSocketHandler(wsManager *WebSocketManager, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{wsManager: wsManager, logger: logger}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("no se pudo promover la conexión a websocket", zap.Error(err))
		return
	}

	h.wsManager.register <- conn

	go func() {
		defer func() {
			h.wsManager.unregister <- conn
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					h.logger.Warn("error en la conexión del tablero", zap.Error(err))
				}
				break
			}
		}
	}()
}
