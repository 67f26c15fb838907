package server

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mohammad-safakhou/prizm/internal/assistant"
	"github.com/mohammad-safakhou/prizm/internal/bus"
	"github.com/mohammad-safakhou/prizm/internal/helpers"
	"github.com/mohammad-safakhou/prizm/internal/store"
	"github.com/mohammad-safakhou/prizm/models"
	"go.uber.org/zap"
)

type MessagesHandler struct {
	Store     *store.Store
	Assistant *assistant.Assistant
	Bus       bus.Bus
	Logger    *zap.Logger
}

func (h *MessagesHandler) Register(g *echo.Group) {
	g.POST("", h.create)
	g.GET("/ai/:userId", h.aiHistory)
	g.POST("/ai", h.ai)
	g.GET("/:userId1/:userId2", h.conversation)
}

func (h *MessagesHandler) conversation(c echo.Context) error {
	a, err := intParam(c, "userId1")
	if err != nil {
		return err
	}
	b, err := intParam(c, "userId2")
	if err != nil {
		return err
	}
	msgs, err := h.Store.GetMessages(c.Request().Context(), a, b)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, msgs)
}

func (h *MessagesHandler) create(c echo.Context) error {
	var req models.NewMessage
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	// only converse writes assistant turns
	if req.FromID == models.AssistantID {
		return models.FieldErrors{"fromId": "must not be the assistant"}
	}
	req.IsAiAssistant = false
	req = helpers.CleanMessage(req)
	if err := req.Validate(); err != nil {
		return err
	}
	ctx := c.Request().Context()
	msg, err := h.Store.CreateMessage(ctx, req)
	if err != nil {
		return err
	}
	h.publish(ctx, msg)
	return c.JSON(http.StatusCreated, msg)
}

func (h *MessagesHandler) aiHistory(c echo.Context) error {
	userID, err := intParam(c, "userId")
	if err != nil {
		return err
	}
	msgs, err := h.Store.GetMessages(c.Request().Context(), userID, models.AssistantID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, msgs)
}

// ai persists the user's message, asks the assistant and persists its reply.
// The response is [userMessage, assistantMessage].
func (h *MessagesHandler) ai(c echo.Context) error {
	var req struct {
		FromID  int    `json:"fromId"`
		Content string `json:"content"`
	}
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	user, reply, err := h.converse(c.Request().Context(), req.FromID, req.Content)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, []models.Message{user, reply})
}

// chat is the {userId, message} form of the assistant pipeline.
func (h *MessagesHandler) chat(c echo.Context) error {
	var req struct {
		UserID  int    `json:"userId"`
		Message string `json:"message"`
	}
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	user, reply, err := h.converse(c.Request().Context(), req.UserID, req.Message)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]models.Message{"userMessage": user, "assistantMessage": reply})
}

func (h *MessagesHandler) converse(ctx context.Context, fromID int, content string) (models.Message, models.Message, error) {
	in := helpers.CleanMessage(models.NewMessage{FromID: fromID, ToID: models.AssistantID, Content: content})
	if err := in.Validate(); err != nil {
		return models.Message{}, models.Message{}, err
	}
	if fromID == models.AssistantID {
		return models.Message{}, models.Message{}, models.FieldErrors{"fromId": "must not be the assistant"}
	}
	user, err := h.Store.CreateMessage(ctx, in)
	if err != nil {
		return models.Message{}, models.Message{}, err
	}
	history, err := h.Store.GetMessages(ctx, fromID, models.AssistantID)
	if err != nil {
		return models.Message{}, models.Message{}, err
	}
	text := h.Assistant.Respond(ctx, history)
	reply, err := h.Store.CreateMessage(ctx, models.NewMessage{
		FromID:        models.AssistantID,
		ToID:          fromID,
		Content:       text,
		IsAiAssistant: true,
	})
	if err != nil {
		return models.Message{}, models.Message{}, err
	}
	h.publish(ctx, reply)
	return user, reply, nil
}

// publish hands msg to the delivery bus. Delivery is best effort.
func (h *MessagesHandler) publish(ctx context.Context, msg models.Message) {
	if h.Bus == nil {
		return
	}
	if err := h.Bus.Publish(ctx, msg); err != nil {
		h.Logger.Warn("publish message", zap.Int("message_id", msg.ID), zap.Int("to_id", msg.ToID), zap.Error(err))
	}
}
