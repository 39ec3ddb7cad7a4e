package models

// ChatState is the bot conversation step of one Telegram chat.
type ChatState struct {
	ChatID int64             `json:"chat_id"`
	Step   string            `json:"step"`
	Data   map[string]string `json:"data,omitempty"`
}

func (s *ChatState) Get(key string) string {
	if s == nil || s.Data == nil {
		return ""
	}
	return s.Data[key]
}

func (s *ChatState) Set(key, value string) {
	if s.Data == nil {
		s.Data = make(map[string]string)
	}
	s.Data[key] = value
}
