package domain

// ChatMessage is the role-tagged message shape sent to the upstream
// completion API.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
