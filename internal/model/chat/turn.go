package chat

// Turn is a single user message scoped by a conversation id. The server uses
// the id to select the conversational memory it keeps for the chat.
type Turn struct {
	Message string `json:"message"`
	ChatID  string `json:"chatId"`
}

// CreateChatRequest is the JSON body of POST /api/ai/chat.
type CreateChatRequest struct {
	Message string `json:"message"`
	ChatID  string `json:"chatId,omitempty"`
}
