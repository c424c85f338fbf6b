package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/dasmlab/vakya/pkg/translate"
)

const (
	msgNoText        = "No text provided for translation"
	msgInvalidMethod = `Invalid translation method. Use "api", "local", or "modelv3"`
	msgNoLocalModel  = "Local model (modelv2) not available. Please check if modelv2 is properly installed."
	msgNoModelV3     = "Model v3 (aiIndicTrans2) not available. Please check if modelv3 is properly installed."
	msgNoPrompt      = "no prompt"
)

type translateRequest struct {
	Text string `json:"text"`
	// Method stays raw so an absent field can be told apart from "" or null.
	Method json.RawMessage `json:"method"`
}

// method resolves the requested method. Only an absent field selects
// MethodAPI; null, "" and non-string values are invalid.
func (r translateRequest) method() (translate.Method, error) {
	if r.Method == nil {
		return translate.MethodAPI, nil
	}
	var name string
	if err := json.Unmarshal(r.Method, &name); err != nil {
		return "", fmt.Errorf("%w: %s", translate.ErrInvalidMethod, r.Method)
	}
	return translate.ParseMethod(name)
}

type promptRequest struct {
	Prompt string `json:"prompt"`
}

func (s *HTTPServer) handleHello(c *gin.Context) {
	c.String(http.StatusOK, "Hello World! from the vakya translate routes")
}

func (s *HTTPServer) handleTest(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Translation routes working",
	})
}

// handleEnglishToSanskrit validates in a fixed order: text, method, then
// model availability, so clients always see the first problem.
func (s *HTTPServer) handleEnglishToSanskrit(c *gin.Context) {
	var req translateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgNoText})
		return
	}
	method, err := req.method()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidMethod})
		return
	}
	switch method {
	case translate.MethodLocal:
		if !s.translator.Available(method) {
			c.JSON(http.StatusBadRequest, gin.H{"error": msgNoLocalModel})
			return
		}
	case translate.MethodModelV3:
		if !s.translator.Available(method) {
			c.JSON(http.StatusBadRequest, gin.H{"error": msgNoModelV3})
			return
		}
	}

	result, err := s.translator.Translate(c.Request.Context(), req.Text, method)
	if err != nil {
		s.logger.WithError(err).WithField("method", method).Error("Translation error")
		c.Error(err)
		c.JSON(httpStatus(err), gin.H{
			"error":   "Translation failed",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"originalText":   req.Text,
		"translatedText": result.TranslatedText,
		"method":         result.Method,
		"sourceLanguage": result.SourceLanguage,
		"targetLanguage": result.TargetLanguage,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *HTTPServer) handleMethods(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"methods": s.translator.Methods(),
		"supportedLanguages": gin.H{
			"source": translate.SourceLanguage,
			"target": translate.TargetLanguage,
		},
	})
}

// handleChatFile sends a prompt, plus an optional uploaded file, to the
// tutor chat and answers with the reply as a JSON string.
func (s *HTTPServer) handleChatFile(c *gin.Context) {
	prompt := c.PostForm("prompt")
	if prompt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgNoPrompt})
		return
	}
	if s.generator == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": translate.ErrGeneratorUnavailable.Error()})
		return
	}

	attachment, err := s.readAttachment(c)
	if err != nil {
		var tooLarge *uploadTooLargeError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	answer, err := s.generator.Chat(c.Request.Context(), prompt, attachment)
	if err != nil {
		s.logger.WithError(err).Error("Error in Gemini chat")
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, answer)
}

type uploadTooLargeError struct {
	size, limit int64
}

func (e *uploadTooLargeError) Error() string {
	return fmt.Sprintf("file too large: %d bytes exceeds %d", e.size, e.limit)
}

// readAttachment returns nil when no file was posted. The MIME type is
// sniffed from the content, not taken from the client.
func (s *HTTPServer) readAttachment(c *gin.Context) (*translate.Attachment, error) {
	header, err := c.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("invalid file upload: %w", err)
	}
	if header.Size > s.maxUploadBytes {
		return nil, &uploadTooLargeError{size: header.Size, limit: s.maxUploadBytes}
	}

	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.maxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > s.maxUploadBytes {
		return nil, &uploadTooLargeError{size: int64(len(data)), limit: s.maxUploadBytes}
	}

	mime := mimetype.Detect(data)
	s.logger.WithFields(logrus.Fields{
		"filename":  header.Filename,
		"size":      len(data),
		"mime_type": mime.String(),
	}).Debug("Received chat attachment")

	return &translate.Attachment{
		Data:     data,
		MIMEType: baseMIME(mime.String()),
	}, nil
}

// baseMIME drops parameters such as "; charset=utf-8".
func baseMIME(m string) string {
	if i := strings.IndexByte(m, ';'); i >= 0 {
		return strings.TrimSpace(m[:i])
	}
	return m
}

// handleStream relays generated text as SSE frames. Every stream ends with
// a [DONE] frame, errors included.
func (s *HTTPServer) handleStream(c *gin.Context) {
	var req promptRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Prompt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgNoPrompt})
		return
	}
	if s.generator == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": translate.ErrGeneratorUnavailable.Error()})
		return
	}

	setSSEHeaders(c)
	c.Status(http.StatusOK)

	err := s.generator.GenerateContentStream(c.Request.Context(), req.Prompt, func(chunk string) error {
		data, err := json.Marshal(chunk)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", data); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	})
	if err != nil {
		s.logger.WithError(err).Error("Error in Gemini stream")
	}

	fmt.Fprint(c.Writer, "data: [DONE]\n\n")
	c.Writer.Flush()
}

// handleGenerateJSON relays the generator's JSON document of kind untouched.
func (s *HTTPServer) handleGenerateJSON(kind translate.DocumentKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req promptRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Prompt == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": msgNoPrompt})
			return
		}
		if s.generator == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": translate.ErrGeneratorUnavailable.Error()})
			return
		}

		out, err := s.generator.GenerateJSON(c.Request.Context(), kind, req.Prompt)
		if err != nil {
			s.logger.WithError(err).WithField("kind", kind).Error("Generation failed")
			c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		if !json.Valid([]byte(out)) {
			s.logger.WithField("kind", kind).Error("Generator returned invalid JSON")
			c.JSON(http.StatusBadGateway, gin.H{"error": "model returned invalid JSON"})
			return
		}

		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(out))
	}
}

func setSSEHeaders(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
}

// httpStatus maps translation errors onto HTTP status codes.
func httpStatus(err error) int {
	switch {
	case translate.IsValidation(err), translate.IsPrecondition(err):
		return http.StatusBadRequest
	case translate.IsTimeout(err):
		return http.StatusGatewayTimeout
	case errors.Is(err, translate.ErrGeneratorUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
