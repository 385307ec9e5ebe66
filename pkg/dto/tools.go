package dto

// ToolResponse is the answer of every tool endpoint. Result is text meant to
// be read aloud.
type ToolResponse struct {
	Result string `json:"result"`
}

type CameraRequest struct {
	Room       string `json:"room"`
	Action     string `json:"action" binding:"required"`
	CameraType string `json:"camera_type"`
}

type CaptureRequest struct {
	Room  string `json:"room"`
	Count int    `json:"count"`
}

type AddPersonRequest struct {
	Room       string `json:"room"`
	Name       string `json:"name"`
	Collection string `json:"collection"`
}

type RecognizeRequest struct {
	Room string `json:"room"`
}

type SessionRequest struct {
	Room   string `json:"room"`
	UserID string `json:"user_id"`
}

type WeatherRequest struct {
	City string `json:"city"`
}

type SearchRequest struct {
	Query string `json:"query"`
}

type EmailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Message string `json:"message"`
	CC      string `json:"cc,omitempty"`
}
