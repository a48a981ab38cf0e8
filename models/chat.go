package models

// ChatRole identifies the author of a chat turn.
type ChatRole string

const (
	ChatRoleUser  ChatRole = "user"
	ChatRoleModel ChatRole = "model"
)

// ChatMessage is one turn of the assistant conversation. History is
// append-only and starts with a fixed greeting from the model.
type ChatMessage struct {
	Role ChatRole `json:"role"`
	Text string   `json:"text"`
}
