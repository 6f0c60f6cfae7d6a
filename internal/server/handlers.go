package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/leofalp/plantcare/core/client"
	"github.com/leofalp/plantcare/core/prompt"
	"github.com/leofalp/plantcare/core/recognition"
	"github.com/leofalp/plantcare/core/registry"
	"github.com/leofalp/plantcare/providers/ai"
	"github.com/leofalp/plantcare/providers/memory"
)

type providerView struct {
	Name       string `json:"name"`
	Model      string `json:"model"`
	Vision     bool   `json:"vision"`
	Configured bool   `json:"configured"`
	Default    bool   `json:"default,omitempty"`
	Recognizer bool   `json:"recognizer,omitempty"`
}

func (s *Server) listProviders(c *gin.Context) {
	reg := s.client.Registry()
	views := make([]providerView, 0, len(reg.Names()))
	for _, name := range reg.Names() {
		descriptor, _ := reg.Lookup(name)
		views = append(views, providerView{
			Name:       name,
			Model:      descriptor.WireModelName,
			Vision:     descriptor.Vision,
			Configured: reg.Configured(descriptor),
			Default:    name == reg.DefaultName(),
			Recognizer: name == reg.VisionName(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"providers": views})
}

type chatRequest struct {
	Provider       string `json:"provider"`
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
	ReferenceURL   string `json:"reference_url"`
}

type chatResponse struct {
	ConversationID string     `json:"conversation_id"`
	Provider       string     `json:"provider"`
	Message        ai.Message `json:"message"`
	Usage          *ai.Usage  `json:"usage,omitempty"`
}

// chatCall is a validated chat request with its history loaded.
type chatCall struct {
	descriptor     registry.Descriptor
	conversationID string
	history        memory.Provider
	userText       string // what the user typed, stored in history
	messages       []ai.Message
}

// prepareChat validates the body, resolves the provider and builds the
// request messages. It writes the error response itself and returns false
// when the call cannot proceed.
func (s *Server) prepareChat(c *gin.Context) (chatCall, bool) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return chatCall{}, false
	}
	text := strings.TrimSpace(req.Message)
	if text == "" {
		badRequest(c, "message is required")
		return chatCall{}, false
	}

	conversationID := strings.TrimSpace(req.ConversationID)
	if conversationID == "" {
		conversationID = uuid.NewString()
	} else if _, err := uuid.Parse(conversationID); err != nil {
		badRequest(c, "conversation_id must be a UUID")
		return chatCall{}, false
	}

	ctx := c.Request.Context()
	descriptor, err := s.client.Registry().Resolve(req.Provider)
	if err != nil {
		abortWith(c, err, descriptor)
		return chatCall{}, false
	}

	history, err := s.store.Conversation(ctx, conversationID)
	if err != nil {
		abortWith(c, err, descriptor)
		return chatCall{}, false
	}
	prior, err := history.LastMessages(ctx, s.builder.Window)
	if err != nil {
		abortWith(c, err, descriptor)
		return chatCall{}, false
	}

	question := text
	if req.ReferenceURL != "" {
		if s.guides == nil {
			badRequest(c, "reference_url is not supported by this server")
			return chatCall{}, false
		}
		question, err = s.withReference(ctx, text, req.ReferenceURL)
		if err != nil {
			abortWith(c, err, descriptor)
			return chatCall{}, false
		}
	}

	return chatCall{
		descriptor:     descriptor,
		conversationID: conversationID,
		history:        history,
		userText:       text,
		messages:       s.builder.Build(prior, question),
	}, true
}

func (s *Server) withReference(ctx context.Context, question, url string) (string, error) {
	guide, err := s.guides.Fetch(ctx, url)
	if err != nil {
		return "", err
	}
	return prompt.WithReference(question, prompt.Reference{Source: guide.URL, Title: guide.Title, Body: guide.Markdown}), nil
}

// remember stores the finished exchange. A storage failure is logged, the
// answer is still returned.
func (s *Server) remember(ctx context.Context, call chatCall, result client.Result) {
	err := memory.AppendTurn(ctx, call.history, ai.NewUserMessage(call.userText), result.Message())
	if err != nil {
		s.logger.ErrorContext(ctx, "history append failed", "conversation_id", call.conversationID, "error", err)
	}
}

func (s *Server) chat(c *gin.Context) {
	call, ok := s.prepareChat(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	result := s.client.Complete(ctx, call.descriptor, call.messages)
	if !result.OK() {
		abortWith(c, result.Err, call.descriptor)
		return
	}
	s.remember(ctx, call, result)

	c.JSON(http.StatusOK, chatResponse{
		ConversationID: call.conversationID,
		Provider:       result.Provider,
		Message:        result.Message(),
		Usage:          result.Usage,
	})
}

func (s *Server) chatStream(c *gin.Context) {
	call, ok := s.prepareChat(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	startStream(c, call.conversationID)
	result := s.client.StreamComplete(ctx, call.descriptor, call.messages, func(chunk string) {
		writeEvent(c, eventChunk, gin.H{"content": chunk})
	})

	if !result.OK() {
		_, body := failure(result.Err, call.descriptor)
		writeEvent(c, eventError, body)
		return
	}
	s.remember(ctx, call, result)
	writeEvent(c, eventDone, gin.H{
		"conversation_id": call.conversationID,
		"content":         result.Content,
		"usage":           result.Usage,
	})
}

type recognizeRequest struct {
	Image    string `json:"image"`
	MimeType string `json:"mime_type"`
	Mode     string `json:"mode"`
	Symptoms string `json:"symptoms"`
	Prompt   string `json:"prompt"`
}

type recognizeResponse struct {
	Provider       string                      `json:"provider"`
	Mode           recognition.Mode            `json:"mode"`
	Raw            string                      `json:"raw"`
	Identification *recognition.Identification `json:"identification,omitempty"`
	Diagnosis      *recognition.Diagnosis      `json:"diagnosis,omitempty"`
}

func (s *Server) recognize(c *gin.Context) {
	var req recognizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	mode, ok := recognition.ParseMode(req.Mode)
	if !ok {
		badRequest(c, "mode must be identify or diagnose")
		return
	}
	if strings.TrimSpace(req.Image) == "" {
		badRequest(c, "image is required")
		return
	}

	instruction := req.Prompt
	if strings.TrimSpace(instruction) == "" {
		instruction = recognition.PromptFor(mode, "")
	}

	result := s.client.Recognize(c.Request.Context(), client.RecognitionRequest{
		ImageData:        req.Image,
		MimeType:         req.MimeType,
		PromptText:       instruction,
		PriorSymptomText: req.Symptoms,
	})
	if !result.OK() {
		descriptor, _ := s.client.Registry().Lookup(s.client.Registry().VisionName())
		abortWith(c, result.Err, descriptor)
		return
	}

	resp := recognizeResponse{Provider: result.Provider, Mode: mode, Raw: result.Content}
	switch mode {
	case recognition.ModeDiagnose:
		resp.Diagnosis = recognition.Interpret[recognition.Diagnosis](result.Content).Parsed
	default:
		resp.Identification = recognition.Interpret[recognition.Identification](result.Content).Parsed
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) careGuide(c *gin.Context) {
	if s.guides == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, errorBody{Kind: "disabled", Reason: "care guide fetching is disabled"})
		return
	}
	guide, err := s.guides.Fetch(c.Request.Context(), c.Query("url"))
	if err != nil {
		abortWith(c, err, registry.Descriptor{})
		return
	}
	c.JSON(http.StatusOK, guide)
}

func (s *Server) conversation(c *gin.Context) {
	history, ok := s.openConversation(c)
	if !ok {
		return
	}
	messages, err := history.AllMessages(c.Request.Context())
	if err != nil {
		abortWith(c, err, registry.Descriptor{})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation_id": c.Param("id"), "messages": messages})
}

func (s *Server) clearConversation(c *gin.Context) {
	history, ok := s.openConversation(c)
	if !ok {
		return
	}
	if err := history.ClearMessages(c.Request.Context()); err != nil {
		abortWith(c, err, registry.Descriptor{})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) openConversation(c *gin.Context) (memory.Provider, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		badRequest(c, "conversation id must be a UUID")
		return nil, false
	}
	history, err := s.store.Conversation(c.Request.Context(), id)
	if err != nil {
		abortWith(c, err, registry.Descriptor{})
		return nil, false
	}
	return history, true
}
