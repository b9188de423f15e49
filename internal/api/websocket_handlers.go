// internal/api/websocket_handlers.go
package api

import (
	"encoding/json"
	"time"

	"github.com/Corphon/NoteQuiz/internal/models"
	"github.com/Corphon/NoteQuiz/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// PracticeFrame 客户端发来的一帧；type 为空时按评分处理
type PracticeFrame struct {
	Type     string          `json:"type,omitempty"`
	ID       string          `json:"id,omitempty"`
	QType    string          `json:"qtype"`
	Question json.RawMessage `json:"question"`
	Answer   json.RawMessage `json:"answer"`
}

// PracticeWebSocket GET /ws/practice：逐题提交并即时返回评分
func (h *Handler) PracticeWebSocket(c *gin.Context) {
	conn, err := h.Practice.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Practice.logger.Warn("练习通道升级失败", map[string]interface{}{"error": err})
		return
	}

	client := newPracticeClient(uuid.NewString(), conn, h.Practice.logger)
	h.Practice.Register(client)

	go h.handlePracticeWrites(client)
	_ = client.SendMessage(map[string]interface{}{
		"type":      "connected",
		"client_id": client.id,
		"timestamp": time.Now().Format(time.RFC3339),
	})
	h.handlePracticeReads(client)
}

func (h *Handler) handlePracticeReads(client *PracticeClient) {
	defer h.Practice.Unregister(client)

	client.conn.SetReadLimit(practiceMaxFrame)
	client.conn.SetReadDeadline(time.Now().Add(practiceReadTimeout))
	client.conn.SetPongHandler(func(string) error {
		client.UpdatePing()
		return client.conn.SetReadDeadline(time.Now().Add(practiceReadTimeout))
	})

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.Practice.logger.Warn("练习通道读取失败", map[string]interface{}{"client_id": client.id, "error": err})
			}
			return
		}
		client.UpdatePing()
		client.conn.SetReadDeadline(time.Now().Add(practiceReadTimeout))

		var frame PracticeFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			client.SendError("invalid message: expected a JSON object")
			continue
		}
		h.handlePracticeFrame(client, frame)
	}
}

func (h *Handler) handlePracticeWrites(client *PracticeClient) {
	ticker := time.NewTicker(practicePingInterval)
	defer func() {
		ticker.Stop()
		client.Close()
	}()

	for {
		select {
		case message := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(practiceWriteTimeout))
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(practiceWriteTimeout))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-client.done:
			return
		}
	}
}

func (h *Handler) handlePracticeFrame(client *PracticeClient, frame PracticeFrame) {
	switch frame.Type {
	case "ping":
		_ = client.SendMessage(map[string]interface{}{
			"type":      "pong",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	case "", "grade":
		result, err := h.gradePracticeFrame(frame)
		if err != nil {
			client.SendError(err.Error())
			return
		}
		reply := map[string]interface{}{"type": "graded", "result": result}
		if frame.ID != "" {
			reply["id"] = frame.ID
		}
		_ = client.SendMessage(reply)
	default:
		client.SendError("unknown message type: " + frame.Type)
	}
}

type practiceError string

func (e practiceError) Error() string { return string(e) }

func (h *Handler) gradePracticeFrame(frame PracticeFrame) (services.GradeOutcome, error) {
	if len(frame.Question) == 0 {
		return services.GradeOutcome{}, practiceError("question is required")
	}
	var question models.QuizEntry
	if err := json.Unmarshal(frame.Question, &question); err != nil {
		return services.GradeOutcome{}, practiceError("invalid question")
	}
	var answer models.Submission
	if len(frame.Answer) > 0 {
		if err := json.Unmarshal(frame.Answer, &answer); err != nil {
			return services.GradeOutcome{}, practiceError("invalid answer")
		}
	}

	qtype := frame.QType
	if qtype == "" {
		qtype = string(models.QuestionObjective)
	}
	return h.GradingService.GradeOne(models.ParseQuestionType(qtype), question, answer), nil
}
