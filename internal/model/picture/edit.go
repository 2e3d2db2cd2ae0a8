package picture

import "github.com/leo/leo-picture-client/internal/model/user"

// 编辑消息类型
const (
	MessageInfo       = "INFO"
	MessageError      = "ERROR"
	MessageEnterEdit  = "ENTER_EDIT"
	MessageExitEdit   = "EXIT_EDIT"
	MessageEditAction = "EDIT_ACTION"

	MessageCurrentEditStatus = "CURRENT_EDIT_STATUS"
)

// 编辑动作
const (
	ActionZoomIn      = "ZOOM_IN"
	ActionZoomOut     = "ZOOM_OUT"
	ActionRotateLeft  = "ROTATE_LEFT"
	ActionRotateRight = "ROTATE_RIGHT"
)

var actionText = map[string]string{
	ActionZoomIn:      "放大操作",
	ActionZoomOut:     "缩小操作",
	ActionRotateLeft:  "左旋操作",
	ActionRotateRight: "右旋操作",
}

// ActionText returns the human readable label of an edit action and whether
// the action is known.
func ActionText(action string) (string, bool) {
	text, ok := actionText[action]
	return text, ok
}

// EditRequest is sent by a client over the edit channel.
type EditRequest struct {
	Type       string `json:"type"`
	EditAction string `json:"editAction,omitempty"`
}

// EditResponse is broadcast by the server to the clients of one picture.
type EditResponse struct {
	Type       string          `json:"type"`
	Message    string          `json:"message,omitempty"`
	EditAction string          `json:"editAction,omitempty"`
	User       *user.LoginUser `json:"user,omitempty"`
}
