package irisfast

import "context"

type MessageCallback func(message *Message)

type StateCallback func(state WebSocketState)

// WSClient is the event-stream side of the bridge. Callback ids are unique per client.
type WSClient interface {
	Connect(ctx context.Context) error
	State() WebSocketState
	OnMessage(cb MessageCallback) int
	RemoveMessageCallback(id int)
	OnStateChange(cb StateCallback) int
	RemoveStateCallback(id int)
	WriteJSON(ctx context.Context, v any) error
	Close(ctx context.Context) error
}
