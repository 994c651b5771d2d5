package irisfast

import "strings"

// Message is one chat event pushed by the Iris bridge.
type Message struct {
	Msg    string       `json:"msg"`
	Room   string       `json:"room"`
	Sender *string      `json:"sender,omitempty"`
	JSON   *MessageJSON `json:"json,omitempty"`
}

// MessageJSON carries the raw KakaoTalk row fields Iris forwards.
type MessageJSON struct {
	UserID  string `json:"user_id"`
	ChatID  string `json:"chat_id,omitempty"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message,omitempty"`
}

// UserID prefers the stable Kakao user id and falls back to the display name.
func (m *Message) UserID() string {
	if m == nil {
		return ""
	}
	if m.JSON != nil {
		if id := strings.TrimSpace(m.JSON.UserID); id != "" {
			return id
		}
	}
	return m.SenderName()
}

func (m *Message) SenderName() string {
	if m == nil || m.Sender == nil {
		return ""
	}
	return strings.TrimSpace(*m.Sender)
}

// Config mirrors GET /config.
type Config struct {
	BotName           string `json:"bot_name"`
	BotHTTPPort       int    `json:"bot_http_port"`
	WebServerEndpoint string `json:"web_server_endpoint"`
	DBPollingRate     int    `json:"db_polling_rate"`
	MessageSendRate   int    `json:"message_send_rate"`
	BotID             int64  `json:"bot_id"`
}

type ReplyRequest struct {
	Type string `json:"type"`
	Room string `json:"room"`
	Data string `json:"data"`
}

// ImageReplyRequest is a ReplyRequest whose Data is base64 PNG.
type ImageReplyRequest = ReplyRequest

type DecryptRequest struct {
	Data string `json:"data"`
}

type DecryptResponse struct {
	Decrypted string `json:"decrypted"`
}

type WebSocketState string

const (
	WSStateDisconnected WebSocketState = "disconnected"
	WSStateConnecting   WebSocketState = "connecting"
	WSStateConnected    WebSocketState = "connected"
	WSStateReconnecting WebSocketState = "reconnecting"
	WSStateFailed       WebSocketState = "failed"
)
