// Package httpapi exposes the request/response surface next to the live
// connection protocol: language preference updates, the non-realtime
// send-message fallback, conversation history, and document translation.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"golang.org/x/text/language"

	"linguachat/auth"
	"linguachat/document"
	"linguachat/domain"
	apperrors "linguachat/errors"
	"linguachat/services"
)

const maxUploadSize = 10 << 20 // 10 MiB

type Server struct {
	log       *slog.Logger
	chat      services.IChatService
	documents *document.Service
	tokens    *auth.TokenManager
	validate  *validator.Validate
}

func NewServer(log *slog.Logger, chat services.IChatService,
	documents *document.Service, tokens *auth.TokenManager) *Server {
	return &Server{
		log:       log,
		chat:      chat,
		documents: documents,
		tokens:    tokens,
		validate:  validator.New(),
	}
}

// Routes mounts the API surface on a fresh mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /api/users/language", s.handleUpdateLanguage)
	mux.HandleFunc("GET /api/users/sidebar", s.handleSidebar)
	mux.HandleFunc("POST /api/messages/send/{id}", s.handleSendMessage)
	mux.HandleFunc("GET /api/messages/{id}", s.handleGetMessages)
	mux.HandleFunc("POST /api/documents/translate", s.handleTranslateDocument)
	return mux
}

type updateLanguageRequest struct {
	UserID   string `json:"userId" validate:"required"`
	Language string `json:"language" validate:"required"`
}

func (s *Server) handleUpdateLanguage(w http.ResponseWriter, r *http.Request) {
	var req updateLanguageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.writeError(w, http.StatusBadRequest, "userId and language are required")
		return
	}

	normalized, err := normalizeLanguage(req.Language)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid language code %q", req.Language))
		return
	}

	switch err := s.chat.SetLanguage(req.UserID, normalized); {
	case errors.Is(err, apperrors.ErrUserNotFound):
		s.writeError(w, http.StatusNotFound, "user not found")
	case err != nil:
		s.log.Error("Language update failed", "user", req.UserID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
	default:
		s.writeJSON(w, http.StatusOK, map[string]string{
			"message":  "language preference updated",
			"language": normalized,
		})
	}
}

type sendMessageRequest struct {
	Text           string `json:"text"`
	Image          string `json:"image"`
	IsVoiceMessage bool   `json:"isVoiceMessage"`
}

type messageResponse struct {
	ID             string `json:"id"`
	SenderID       string `json:"senderId"`
	ReceiverID     string `json:"receiverId"`
	Text           string `json:"text"`
	OriginalText   string `json:"originalText"`
	Image          string `json:"image,omitempty"`
	IsVoiceMessage bool   `json:"isVoiceMessage"`
	CreatedAt      string `json:"createdAt"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	senderID, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	receiverID := r.PathValue("id")

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Text == "" && req.Image == "" {
		s.writeError(w, http.StatusBadRequest, "text or image is required")
		return
	}

	msg, err := s.chat.SendMessage(r.Context(), domain.SendMessageCommand{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       req.Text,
		Image:      req.Image,
		IsVoice:    req.IsVoiceMessage,
	})
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		s.writeError(w, http.StatusNotFound, "receiver not found")
	case errors.Is(err, apperrors.ErrInvalidAttachment):
		s.writeError(w, http.StatusBadRequest, "attachment is not a supported image")
	case err != nil:
		s.log.Error("Send message failed", "sender", senderID, "receiver", receiverID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
	default:
		s.writeJSON(w, http.StatusCreated, toMessageResponse(msg))
	}
}

func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	otherUserID := r.PathValue("id")

	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}

	messages, next, err := s.chat.History(userID, otherUserID, cursor)
	if err != nil {
		s.log.Error("History read failed", "user", userID, "other", otherUserID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"messages": lo.Map(messages, func(item domain.Message, _ int) messageResponse {
			return toMessageResponse(item)
		}),
		"cursor": next,
	})
}

type sidebarUserResponse struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Language string `json:"language"`
}

func (s *Server) handleSidebar(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	users, err := s.chat.Sidebar(userID)
	if err != nil {
		s.log.Error("Sidebar read failed", "user", userID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.writeJSON(w, http.StatusOK, lo.Map(users, func(item domain.User, _ int) sidebarUserResponse {
		return sidebarUserResponse{ID: item.ID, FullName: item.FullName, Language: item.Language}
	}))
}

func (s *Server) handleTranslateDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, _, err := r.FormFile("document")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "document file is required")
		return
	}
	defer func() { _ = file.Close() }()

	normalized, err := normalizeLanguage(r.FormValue("language"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "valid target language is required")
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read document")
		return
	}

	translated, err := s.documents.TranslateDocument(r.Context(), data, normalized)
	switch {
	case errors.Is(err, apperrors.ErrUnsupportedDocument):
		s.writeError(w, http.StatusBadRequest, "unsupported document type")
	case err != nil:
		s.log.Error("Document translation failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to translate document")
	default:
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", "attachment; filename=translated.pdf")
		_, _ = w.Write(translated)
	}
}

// authenticate resolves the caller from the bearer token; writes a 401 and
// returns false when the token is absent or invalid.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if header == "" || token == header {
		s.writeError(w, http.StatusUnauthorized, apperrors.ErrMissingToken.Error())
		return "", false
	}
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, apperrors.ErrMissingToken.Error())
		return "", false
	}
	return claims.UserID, true
}

// normalizeLanguage reduces any valid BCP 47 tag to its base code, the
// format the translation backend expects ("fr-CA" -> "fr").
func normalizeLanguage(lang string) (string, error) {
	tag, err := language.Parse(lang)
	if err != nil {
		return "", err
	}
	base, _ := tag.Base()
	return base.String(), nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Debug("Response encoding failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func toMessageResponse(msg domain.Message) messageResponse {
	return messageResponse{
		ID:             msg.ID.String(),
		SenderID:       msg.SenderID,
		ReceiverID:     msg.ReceiverID,
		Text:           msg.TranslatedText,
		OriginalText:   msg.OriginalText,
		Image:          msg.AttachmentRef,
		IsVoiceMessage: msg.IsVoice,
		CreatedAt:      msg.CreatedAt.Format(time.RFC3339Nano),
	}
}
