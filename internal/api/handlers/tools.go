package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/visora/pkg/dto"
)

// Tools is the assistant tool surface.
type Tools interface {
	ControlCamera(ctx context.Context, room, action, cameraType string) string
	CaptureFrames(ctx context.Context, room string, count int) string
	AddPerson(ctx context.Context, room, personName, collection string) string
	RecognizeFace(ctx context.Context, room string) string
	CreateSession(ctx context.Context, room, userID string) string
	GetWeather(ctx context.Context, city string) string
	SearchWeb(ctx context.Context, query string) string
	SendEmail(ctx context.Context, to, subject, message, cc string) string
}

// ToolHandler exposes each tool as a POST endpoint. Domain outcomes, failures
// included, are answered with 200 and the text to speak; only malformed
// requests get a 4xx.
type ToolHandler struct {
	tools Tools
}

func NewToolHandler(tools Tools) *ToolHandler {
	return &ToolHandler{tools: tools}
}

func (h *ToolHandler) Camera(c *gin.Context) {
	var req dto.CameraRequest
	if !bind(c, &req) {
		return
	}
	reply(c, h.tools.ControlCamera(c.Request.Context(), roomOf(c, req.Room), req.Action, req.CameraType))
}

func (h *ToolHandler) Capture(c *gin.Context) {
	var req dto.CaptureRequest
	if !bind(c, &req) {
		return
	}
	reply(c, h.tools.CaptureFrames(c.Request.Context(), roomOf(c, req.Room), req.Count))
}

func (h *ToolHandler) AddPerson(c *gin.Context) {
	var req dto.AddPersonRequest
	if !bind(c, &req) {
		return
	}
	reply(c, h.tools.AddPerson(c.Request.Context(), roomOf(c, req.Room), req.Name, req.Collection))
}

func (h *ToolHandler) Recognize(c *gin.Context) {
	var req dto.RecognizeRequest
	if !bind(c, &req) {
		return
	}
	reply(c, h.tools.RecognizeFace(c.Request.Context(), roomOf(c, req.Room)))
}

func (h *ToolHandler) Session(c *gin.Context) {
	var req dto.SessionRequest
	if !bind(c, &req) {
		return
	}
	reply(c, h.tools.CreateSession(c.Request.Context(), roomOf(c, req.Room), req.UserID))
}

func (h *ToolHandler) Weather(c *gin.Context) {
	var req dto.WeatherRequest
	if !bind(c, &req) {
		return
	}
	reply(c, h.tools.GetWeather(c.Request.Context(), req.City))
}

func (h *ToolHandler) Search(c *gin.Context) {
	var req dto.SearchRequest
	if !bind(c, &req) {
		return
	}
	reply(c, h.tools.SearchWeb(c.Request.Context(), req.Query))
}

func (h *ToolHandler) Email(c *gin.Context) {
	var req dto.EmailRequest
	if !bind(c, &req) {
		return
	}
	reply(c, h.tools.SendEmail(c.Request.Context(), req.To, req.Subject, req.Message, req.CC))
}

// roomHeader carries the room name when the body does not.
const roomHeader = "X-Room-Name"

func roomOf(c *gin.Context, room string) string {
	if room != "" {
		return room
	}
	return c.GetHeader(roomHeader)
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func reply(c *gin.Context, text string) {
	c.JSON(http.StatusOK, dto.ToolResponse{Result: text})
}
