// internal/api/websocket.go
package api

import (
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Corphon/NoteQuiz/internal/utils"
	"github.com/gorilla/websocket"
)

const (
	practiceReadTimeout  = 60 * time.Second
	practicePingInterval = 54 * time.Second
	practiceWriteTimeout = 10 * time.Second
	practiceSendBuffer   = 64
	practiceMaxFrame     = 1 << 20
)

// WebSocketConnection 练习通道使用的连接方法
type WebSocketConnection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	SetReadLimit(limit int64)
}

// PracticeClient 一个练习连接
type PracticeClient struct {
	id        string
	conn      WebSocketConnection
	send      chan []byte
	done      chan struct{}
	closed    int32 // 0=开启，1=关闭
	lastPing  atomic.Int64
	createdAt time.Time
	logger    *utils.Logger
}

func newPracticeClient(id string, conn WebSocketConnection, logger *utils.Logger) *PracticeClient {
	client := &PracticeClient{
		id:        id,
		conn:      conn,
		send:      make(chan []byte, practiceSendBuffer),
		done:      make(chan struct{}),
		createdAt: time.Now(),
		logger:    logger,
	}
	client.UpdatePing()
	return client
}

// Close 关闭连接，可重复调用
func (client *PracticeClient) Close() {
	if atomic.CompareAndSwapInt32(&client.closed, 0, 1) {
		close(client.done)
		if client.conn != nil {
			client.conn.Close()
		}
	}
}

// IsClosed 连接是否已关闭
func (client *PracticeClient) IsClosed() bool {
	return atomic.LoadInt32(&client.closed) == 1
}

// UpdatePing 记录最近一次活动
func (client *PracticeClient) UpdatePing() {
	client.lastPing.Store(time.Now().UnixNano())
}

// IsExpired 超过 timeout 没有活动
func (client *PracticeClient) IsExpired(timeout time.Duration) bool {
	if timeout <= 0 {
		return true
	}
	return time.Since(time.Unix(0, client.lastPing.Load())) > timeout
}

// SendMessage 异步发送；队列满时丢弃
func (client *PracticeClient) SendMessage(message interface{}) error {
	if client.IsClosed() {
		return nil
	}
	msgBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	select {
	case client.send <- msgBytes:
	case <-client.done:
	default:
		client.logger.Warn("练习连接消息队列已满，消息被丢弃", map[string]interface{}{"client_id": client.id})
	}
	return nil
}

// SendError 发送错误消息
func (client *PracticeClient) SendError(errorMsg string) {
	_ = client.SendMessage(map[string]interface{}{
		"type":      "error",
		"error":     errorMsg,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// PracticeHub 管理所有练习连接
type PracticeHub struct {
	clients     map[string]*PracticeClient
	register    chan *PracticeClient
	unregister  chan *PracticeClient
	stop        chan struct{}
	stopped     chan struct{}
	stopOnce    sync.Once
	mutex       sync.RWMutex
	pingTimeout time.Duration
	upgrader    websocket.Upgrader
	metrics     *utils.APIMetrics
	logger      *utils.Logger
}

// NewPracticeHub 创建并启动练习通道管理器
func NewPracticeHub(allowedOrigins []string, metrics *utils.APIMetrics, logger *utils.Logger) *PracticeHub {
	if logger == nil {
		logger = utils.GetLogger()
	}
	hub := &PracticeHub{
		clients:     make(map[string]*PracticeClient),
		register:    make(chan *PracticeClient, 64),
		unregister:  make(chan *PracticeClient, 64),
		stop:        make(chan struct{}),
		stopped:     make(chan struct{}),
		pingTimeout: practiceReadTimeout * 2,
		metrics:     metrics,
		logger:      logger,
	}
	hub.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	go hub.run()
	return hub
}

// originChecker 允许列表含 "*" 时放行全部；没有 Origin 头的非浏览器客户端总是放行
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || slices.Contains(allowed, "*") {
			return true
		}
		return slices.Contains(allowed, origin)
	}
}

func (hub *PracticeHub) run() {
	defer close(hub.stopped)
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case client := <-hub.register:
			hub.registerClient(client)
		case client := <-hub.unregister:
			hub.unregisterClient(client)
		case <-ticker.C:
			hub.cleanupExpiredConnections()
		case <-hub.stop:
			hub.shutdown()
			return
		}
	}
}

func (hub *PracticeHub) registerClient(client *PracticeClient) {
	hub.mutex.Lock()
	hub.clients[client.id] = client
	count := len(hub.clients)
	hub.mutex.Unlock()

	if hub.metrics != nil {
		hub.metrics.Collector().SetGauge("practice_connections", int64(count))
	}
	hub.logger.Info("练习连接已建立", map[string]interface{}{"client_id": client.id})
}

func (hub *PracticeHub) unregisterClient(client *PracticeClient) {
	hub.mutex.Lock()
	if existing, ok := hub.clients[client.id]; ok && existing == client {
		delete(hub.clients, client.id)
	}
	count := len(hub.clients)
	hub.mutex.Unlock()

	client.Close()
	if hub.metrics != nil {
		hub.metrics.Collector().SetGauge("practice_connections", int64(count))
	}
	hub.logger.Info("练习连接已断开", map[string]interface{}{"client_id": client.id})
}

// cleanupExpiredConnections 清理已关闭或长时间无活动的连接
func (hub *PracticeHub) cleanupExpiredConnections() {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	for id, client := range hub.clients {
		if client.IsClosed() || client.IsExpired(hub.pingTimeout) {
			delete(hub.clients, id)
			client.Close()
		}
	}
}

func (hub *PracticeHub) shutdown() {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	for _, client := range hub.clients {
		client.Close()
	}
	hub.clients = make(map[string]*PracticeClient)
	hub.logger.Info("练习通道已关闭", nil)
}

// Shutdown 关闭所有连接并停止主循环
func (hub *PracticeHub) Shutdown() {
	hub.stopOnce.Do(func() { close(hub.stop) })
	<-hub.stopped
}

// Register 加入连接；管理器已停止时直接关闭
func (hub *PracticeHub) Register(client *PracticeClient) {
	select {
	case hub.register <- client:
	case <-hub.stop:
		client.Close()
	}
}

// Unregister 移除连接
func (hub *PracticeHub) Unregister(client *PracticeClient) {
	select {
	case hub.unregister <- client:
	case <-hub.stop:
		client.Close()
	}
}

// GetStatus 当前连接概况
func (hub *PracticeHub) GetStatus() map[string]interface{} {
	hub.mutex.RLock()
	defer hub.mutex.RUnlock()

	clients := make([]map[string]interface{}, 0, len(hub.clients))
	for _, client := range hub.clients {
		if client.IsClosed() {
			continue
		}
		clients = append(clients, map[string]interface{}{
			"client_id":    client.id,
			"connected_at": client.createdAt.Format(time.RFC3339),
			"last_ping":    time.Unix(0, client.lastPing.Load()).Format(time.RFC3339),
		})
	}
	return map[string]interface{}{
		"total_connections": len(clients),
		"clients":           clients,
	}
}
