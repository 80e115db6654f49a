package api

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/Nekoplex/VkGPTBot/internal/bot"
	"github.com/Nekoplex/VkGPTBot/internal/store"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	bot    *bot.Bot
	store  store.DataStore
	prefix string
	secret string
}

// NewHandler creates a new Handler.
func NewHandler(b *bot.Bot, st store.DataStore, prefix, secret string) *Handler {
	if prefix == "" {
		prefix = "!"
	}
	return &Handler{bot: b, store: st, prefix: prefix, secret: secret}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// Health reports liveness and store reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := h.store.Ping(r.Context()); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	h.JSON(w, code, map[string]string{"status": status})
}

// replyMessage is the quoted message attached to a callback event.
type replyMessage struct {
	FromID   int64  `json:"from_id"`
	FromName string `json:"from_name,omitempty"`
	Text     string `json:"text"`
}

// CallbackEvent is the platform webhook payload for a new message.
type CallbackEvent struct {
	Type    string `json:"type"`
	Secret  string `json:"secret,omitempty"`
	Message struct {
		FromID    int64         `json:"from_id"`
		FromName  string        `json:"from_name,omitempty"`
		Text      string        `json:"text"`
		ChatID    int64         `json:"chat_id,omitempty"`
		ChatTitle string        `json:"chat_title,omitempty"`
		Reply     *replyMessage `json:"reply,omitempty"`
	} `json:"message"`
}

// CallbackResponse carries the bot's reply back to the platform adapter.
type CallbackResponse struct {
	Reply string `json:"reply"`
}

// Callback receives a platform message event, dispatches it to the bot
// core and returns the user-facing reply. Backend failures come back as
// 502; every handled outcome, including refusals, is a 200.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	var event CallbackEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if h.secret != "" && subtle.ConstantTimeCompare([]byte(event.Secret), []byte(h.secret)) != 1 {
		h.Error(w, http.StatusUnauthorized, "bad secret")
		return
	}

	if event.Type != "message_new" {
		h.Error(w, http.StatusBadRequest, "unsupported event type")
		return
	}

	reply, err := h.dispatch(r, event)
	if err != nil {
		h.Error(w, http.StatusBadGateway, "backend failure")
		return
	}

	h.JSON(w, http.StatusOK, CallbackResponse{Reply: reply})
}

// dispatch routes a message: prefixed texts go to the command handlers,
// everything else to the conversation pipeline.
func (h *Handler) dispatch(r *http.Request, event CallbackEvent) (string, error) {
	ctx := r.Context()
	msg := event.Message
	text := strings.TrimSpace(msg.Text)

	if !strings.HasPrefix(text, h.prefix) {
		return h.respond(r, event)
	}

	cmdline := strings.TrimPrefix(text, h.prefix)
	fields := strings.Fields(cmdline)
	if len(fields) == 0 {
		return h.bot.Help(), nil
	}
	cmd, args := fields[0], fields[1:]

	switch strings.ToLower(cmd) {
	case "start":
		return h.bot.Start(ctx, msg.FromID)
	case "help":
		return h.bot.Help(), nil
	case "settings":
		return h.bot.Settings(ctx, msg.FromID)
	case "moods":
		return h.bot.MoodList(ctx)
	case "mymoods":
		return h.bot.MyMoods(ctx, msg.FromID)
	case "tokenize":
		return h.bot.Tokenize(strings.Join(args, " ")), nil
	case "delete":
		return h.bot.DeleteAccount(ctx, msg.FromID)
	case "newmood":
		if len(args) == 0 {
			return h.bot.CreateMoodUsage(), nil
		}
		return h.bot.CreateMood(ctx, msg.FromID, strings.Join(args, " "))
	case "moodinfo":
		if len(args) == 0 {
			return h.bot.Help(), nil
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return h.bot.Help(), nil
		}
		return h.bot.MoodInfo(ctx, msg.FromID, id)
	case "mood":
		if len(args) == 0 {
			return h.bot.Help(), nil
		}
		// A bare numeric argument selects; a field name edits.
		if id, err := strconv.ParseInt(args[0], 10, 64); err == nil {
			return h.bot.SetMood(ctx, msg.FromID, id)
		}
		return h.bot.EditMood(ctx, msg.FromID, strings.Join(args, " "))
	default:
		return h.respond(r, event)
	}
}

// respond runs the conversation pipeline for a plain message.
func (h *Handler) respond(r *http.Request, event CallbackEvent) (string, error) {
	msg := event.Message

	req := bot.Request{
		User: bot.UserInfo{ID: msg.FromID, FullName: msg.FromName},
		Text: msg.Text,
	}
	if msg.Reply != nil {
		req.ReplyUser = &bot.UserInfo{ID: msg.Reply.FromID, FullName: msg.Reply.FromName}
		req.ReplyText = msg.Reply.Text
	}
	if msg.ChatID != 0 || msg.ChatTitle != "" {
		req.Chat = &bot.ChatInfo{ID: msg.ChatID, Title: msg.ChatTitle}
	}

	return h.bot.Respond(r.Context(), req)
}
