package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/zoobzio/polish"
)

// Messages returned to clients.
const (
	msgEmptyText   = "텍스트를 입력해 주세요."
	msgServerError = "서버 오류: "
)

// polishRequest is the body shared by every polishing route.
type polishRequest struct {
	Text string `json:"text" binding:"required"`
}

type polishResponse struct {
	PolishedText string `json:"polished_text"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": ServiceName})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// bindText reads the request text and returns the rendered prompt, or "" when
// the text is missing or blank.
func bindText(c *gin.Context) (string, bool) {
	var req polishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return "", false
	}
	if strings.TrimSpace(req.Text) == "" {
		return "", false
	}
	return PolishPrompt(req.Text).Render(), true
}

func (s *Server) backendContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if s.backendTimeout > 0 {
		return context.WithTimeout(c.Request.Context(), s.backendTimeout)
	}
	return context.WithCancel(c.Request.Context())
}

func (s *Server) backendFailed(c *gin.Context, err error) {
	s.metrics.backendErrors.WithLabelValues(s.backend.Name(), c.FullPath()).Inc()
	s.logger.Error("backend call failed",
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.String("backend", s.backend.Name()),
		zap.String("route", c.FullPath()),
		zap.Error(err),
	)
}

// handlePolishText answers with the backend's one-shot completion.
func (s *Server) handlePolishText(c *gin.Context) {
	prompt, ok := bindText(c)
	if !ok {
		c.JSON(http.StatusBadRequest, errorResponse{Error: msgEmptyText})
		return
	}

	ctx, cancel := s.backendContext(c)
	defer cancel()

	out, err := s.backend.Complete(ctx, prompt)
	if err != nil {
		s.backendFailed(c, err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: msgServerError + err.Error()})
		return
	}
	c.JSON(http.StatusOK, polishResponse{PolishedText: strings.TrimSpace(out)})
}

// handlePolishTextResp collects the backend stream and answers with one JSON body.
func (s *Server) handlePolishTextResp(c *gin.Context) {
	prompt, ok := bindText(c)
	if !ok {
		c.JSON(http.StatusBadRequest, errorResponse{Error: msgEmptyText})
		return
	}

	ctx, cancel := s.backendContext(c)
	defer cancel()

	var b strings.Builder
	err := s.backend.Stream(ctx, prompt, func(delta string) error {
		b.WriteString(delta)
		return nil
	})
	if err != nil {
		s.backendFailed(c, err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: msgServerError + err.Error()})
		return
	}
	c.JSON(http.StatusOK, polishResponse{PolishedText: strings.TrimSpace(b.String())})
}

// handlePolishTextStream writes backend deltas as raw UTF-8 text as they arrive.
// Once the response has started, upstream failures are reported in-band with
// the client's error markers.
func (s *Server) handlePolishTextStream(c *gin.Context) {
	prompt, ok := bindText(c)
	if !ok {
		c.String(http.StatusBadRequest, msgEmptyText)
		return
	}

	ctx, cancel := s.backendContext(c)
	defer cancel()

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("Cache-Control", "no-store")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	written := false
	err := s.backend.Stream(ctx, prompt, func(delta string) error {
		if _, err := c.Writer.WriteString(delta); err != nil {
			return errors.Wrap(err, "write stream delta")
		}
		c.Writer.Flush()
		written = true
		s.metrics.streamDeltas.Inc()
		return nil
	})
	if err == nil {
		if !written {
			// Commit headers so the client sees an empty 200 body.
			c.Writer.WriteHeaderNow()
		}
		return
	}

	s.backendFailed(c, err)
	if c.Request.Context().Err() != nil {
		return
	}
	marker := polish.MarkerServerError + " "
	if written {
		marker = "\n" + polish.MarkerError + " "
	}
	_, _ = c.Writer.WriteString(marker + err.Error())
	c.Writer.Flush()
}
