package request

// SendMessageRequest represents a send message request
type SendMessageRequest struct {
	Content string `json:"content" binding:"required,min=1,max=5000"`
	Type    string `json:"type,omitempty" binding:"omitempty,oneof=text image file"` // default: text
}

// EditMessageRequest represents a message edit request
type EditMessageRequest struct {
	Content string `json:"content" binding:"required,min=1,max=5000"`
}

// ListMessagesQuery pages through a room's history
type ListMessagesQuery struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}
