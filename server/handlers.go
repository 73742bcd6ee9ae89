package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/agrosolve/agrosolve/chat"
	"github.com/agrosolve/agrosolve/pkg/advice"
	"github.com/agrosolve/agrosolve/pkg/datauri"
	"github.com/agrosolve/agrosolve/pkg/llm"
)

// handleAdvice answers a single prompt. Adapter failures are still 200: the
// body then carries the fallback message meant for the chat bubble.
func (s *Server) handleAdvice(c *fiber.Ctx) error {
	req, err := parseAdviceRequest(c)
	if err != nil {
		s.logger.Debug("rejecting advice request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: err.Error()})
	}

	ctx, cancel := s.adviceContext(c)
	defer cancel()

	result := s.adviser.Advise(ctx, req.Prompt, req.Image)
	return c.JSON(llm.AdviceResponse{Text: advice.Present(result)})
}

func (s *Server) handleCreateSession(c *fiber.Ctx) error {
	session := s.sessions.Create()

	transcript, err := session.Transcript(c.UserContext())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(transcript)
}

func (s *Server) handleGetSession(c *fiber.Ctx) error {
	session, ok := s.sessions.Get(c.Params("id"))
	if !ok {
		return sessionNotFound(c)
	}

	transcript, err := session.Transcript(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(transcript)
}

func (s *Server) handleDeleteSession(c *fiber.Ctx) error {
	if !s.sessions.Delete(c.Params("id")) {
		return sessionNotFound(c)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// handleSendMessage blocks until the reply arrives, the session is cleared,
// or the request timeout passes.
func (s *Server) handleSendMessage(c *fiber.Ctx) error {
	session, ok := s.sessions.Get(c.Params("id"))
	if !ok {
		return sessionNotFound(c)
	}

	req, err := parseAdviceRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: err.Error()})
	}

	ctx, cancel := s.adviceContext(c)
	defer cancel()

	turn, err := session.Send(ctx, req.Prompt, req.Image)
	switch {
	case err == nil:
		return c.JSON(llm.TurnResponse{Turn: turn})
	case errors.Is(err, chat.ErrEmptyMessage):
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: err.Error()})
	case errors.Is(err, chat.ErrBusy), errors.Is(err, chat.ErrStale):
		return c.Status(fiber.StatusConflict).JSON(llm.ErrorResponse{Error: err.Error()})
	case errors.Is(err, chat.ErrClosed):
		return sessionNotFound(c)
	default:
		return err
	}
}

func (s *Server) handleClearSession(c *fiber.Ctx) error {
	session, ok := s.sessions.Get(c.Params("id"))
	if !ok {
		return sessionNotFound(c)
	}

	session.Clear()

	transcript, err := session.Transcript(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(transcript)
}

func sessionNotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "session not found"})
}

// parseAdviceRequest accepts either a JSON body or a multipart form with a
// "prompt" field and an optional "image" file.
func parseAdviceRequest(c *fiber.Ctx) (*llm.AdviceRequest, error) {
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return parseMultipart(c)
	}

	var req llm.AdviceRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, errors.New("invalid request body")
	}
	return &req, nil
}

func parseMultipart(c *fiber.Ctx) (*llm.AdviceRequest, error) {
	req := &llm.AdviceRequest{Prompt: c.FormValue("prompt")}

	header, err := c.FormFile("image")
	if errors.Is(err, fasthttp.ErrMissingFile) {
		return req, nil
	}
	if err != nil {
		return nil, fmt.Errorf("invalid multipart form: %w", err)
	}

	image, err := readUpload(header)
	if err != nil {
		return nil, err
	}
	req.Image = image

	return req, nil
}

// readUpload encodes an uploaded file as a data URI. The declared type is
// kept when it is an image type; otherwise the bytes are sniffed.
func readUpload(header *multipart.FileHeader) (string, error) {
	f, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}

	mediaType := header.Header.Get(fiber.HeaderContentType)
	if !strings.HasPrefix(mediaType, "image/") {
		mediaType = datauri.Detect(data)
	}

	return datauri.Encode(mediaType, data), nil
}
