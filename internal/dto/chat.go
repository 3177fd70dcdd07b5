package dto

type ChatRequest struct {
	Message  string `json:"message"`
	Username string `json:"username,omitempty"`
}

type ChatResponse struct {
	Response string `json:"response"`
	Source   string `json:"source"`
}

type TeachRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type TeachResponse struct {
	Message string `json:"message"`
}

type TurnResponse struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Name      string `json:"name"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

type HistoryResponse struct {
	Turns int            `json:"turns"`
	Items []TurnResponse `json:"items"`
}
