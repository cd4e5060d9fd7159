package httpapi

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"linguachat/auth"
	"linguachat/document"
	"linguachat/domain"
	apperrors "linguachat/errors"
	"linguachat/mocks"
)

func newServerUnderTest(t *testing.T, ctrl *gomock.Controller) (*Server, *mocks.MockIChatService, *mocks.MockITranslator, string) {
	t.Helper()
	log := slog.Default()
	chat := mocks.NewMockIChatService(ctrl)
	translator := mocks.NewMockITranslator(ctrl)
	documents := document.NewService(log, document.PlainTextExtractor{}, translator)
	tokens := auth.NewTokenManager("secret-for-tests", time.Hour)

	token, err := tokens.GenerateToken("alice")
	require.NoError(t, err)

	return NewServer(log, chat, documents, tokens), chat, translator, token
}

func doRequest(server *Server, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	server.Routes().ServeHTTP(w, r)
	return w
}

func TestUpdateLanguage_NormalizesRegionalTag(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	server, chat, _, _ := newServerUnderTest(t, ctrl)

	// "fr-CA" reduces to the base code the translation backend expects
	chat.EXPECT().SetLanguage("alice", "fr").Return(nil).Times(1)

	body := strings.NewReader(`{"userId":"alice","language":"fr-CA"}`)
	w := doRequest(server, httptest.NewRequest(http.MethodPut, "/api/users/language", body))

	req.Equal(http.StatusOK, w.Code)

	var resp map[string]string
	req.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	req.Equal("fr", resp["language"])
}

func TestUpdateLanguage_MissingFields(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	server, chat, _, _ := newServerUnderTest(t, ctrl)
	chat.EXPECT().SetLanguage(gomock.Any(), gomock.Any()).Times(0)

	body := strings.NewReader(`{"userId":"alice"}`)
	w := doRequest(server, httptest.NewRequest(http.MethodPut, "/api/users/language", body))

	req.Equal(http.StatusBadRequest, w.Code)
}

func TestUpdateLanguage_InvalidLanguageCode(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	server, chat, _, _ := newServerUnderTest(t, ctrl)
	chat.EXPECT().SetLanguage(gomock.Any(), gomock.Any()).Times(0)

	body := strings.NewReader(`{"userId":"alice","language":"not a language"}`)
	w := doRequest(server, httptest.NewRequest(http.MethodPut, "/api/users/language", body))

	req.Equal(http.StatusBadRequest, w.Code)
}

func TestUpdateLanguage_UnknownUser(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	server, chat, _, _ := newServerUnderTest(t, ctrl)
	chat.EXPECT().SetLanguage("ghost", "fr").Return(apperrors.ErrUserNotFound).Times(1)

	body := strings.NewReader(`{"userId":"ghost","language":"fr"}`)
	w := doRequest(server, httptest.NewRequest(http.MethodPut, "/api/users/language", body))

	req.Equal(http.StatusNotFound, w.Code)
}

func TestSendMessage_RequiresToken(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	server, chat, _, _ := newServerUnderTest(t, ctrl)
	chat.EXPECT().SendMessage(gomock.Any(), gomock.Any()).Times(0)

	body := strings.NewReader(`{"text":"hello"}`)
	w := doRequest(server, httptest.NewRequest(http.MethodPost, "/api/messages/send/bob", body))

	req.Equal(http.StatusUnauthorized, w.Code)
}

func TestSendMessage_SenderComesFromToken(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	server, chat, _, token := newServerUnderTest(t, ctrl)

	sent := domain.Message{
		ID:             uuid.New(),
		SenderID:       "alice",
		ReceiverID:     "bob",
		OriginalText:   "hello",
		TranslatedText: "bonjour",
		CreatedAt:      time.Now().UTC(),
	}
	chat.EXPECT().
		SendMessage(gomock.Any(), domain.SendMessageCommand{
			SenderID:   "alice",
			ReceiverID: "bob",
			Text:       "hello",
		}).
		Return(sent, nil).
		Times(1)

	r := httptest.NewRequest(http.MethodPost, "/api/messages/send/bob",
		strings.NewReader(`{"text":"hello"}`))
	r.Header.Set("Authorization", "Bearer "+token)
	w := doRequest(server, r)

	req.Equal(http.StatusCreated, w.Code)

	var resp messageResponse
	req.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	req.Equal("bonjour", resp.Text)
	req.Equal("hello", resp.OriginalText)
}

func TestSendMessage_ReceiverNotFound(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	server, chat, _, token := newServerUnderTest(t, ctrl)
	chat.EXPECT().
		SendMessage(gomock.Any(), gomock.Any()).
		Return(domain.Message{}, apperrors.ErrUserNotFound).
		Times(1)

	r := httptest.NewRequest(http.MethodPost, "/api/messages/send/ghost",
		strings.NewReader(`{"text":"hello"}`))
	r.Header.Set("Authorization", "Bearer "+token)
	w := doRequest(server, r)

	req.Equal(http.StatusNotFound, w.Code)
}

func TestSendMessage_InvalidAttachment(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	server, chat, _, token := newServerUnderTest(t, ctrl)
	chat.EXPECT().
		SendMessage(gomock.Any(), gomock.Any()).
		Return(domain.Message{}, apperrors.ErrInvalidAttachment).
		Times(1)

	r := httptest.NewRequest(http.MethodPost, "/api/messages/send/bob",
		strings.NewReader(`{"image":"bm90IGFuIGltYWdl"}`))
	r.Header.Set("Authorization", "Bearer "+token)
	w := doRequest(server, r)

	req.Equal(http.StatusBadRequest, w.Code)
}

func TestSendMessage_EmptyBodyRejected(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	server, chat, _, token := newServerUnderTest(t, ctrl)
	chat.EXPECT().SendMessage(gomock.Any(), gomock.Any()).Times(0)

	r := httptest.NewRequest(http.MethodPost, "/api/messages/send/bob",
		strings.NewReader(`{}`))
	r.Header.Set("Authorization", "Bearer "+token)
	w := doRequest(server, r)

	req.Equal(http.StatusBadRequest, w.Code)
}

func TestGetMessages_ForwardsCursor(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	server, chat, _, token := newServerUnderTest(t, ctrl)

	next := "page-2"
	chat.EXPECT().
		History("alice", "bob", gomock.Not(gomock.Nil())).
		DoAndReturn(func(userID, otherUserID string, cursor *string) ([]domain.Message, *string, error) {
			req.Equal("page-1", *cursor)
			return []domain.Message{{
				ID:             uuid.New(),
				SenderID:       "alice",
				ReceiverID:     "bob",
				TranslatedText: "hi",
				CreatedAt:      time.Now().UTC(),
			}}, &next, nil
		}).
		Times(1)

	r := httptest.NewRequest(http.MethodGet, "/api/messages/bob?cursor=page-1", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := doRequest(server, r)

	req.Equal(http.StatusOK, w.Code)

	var resp struct {
		Messages []messageResponse `json:"messages"`
		Cursor   *string           `json:"cursor"`
	}
	req.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	req.Len(resp.Messages, 1)
	req.NotNil(resp.Cursor)
	req.Equal("page-2", *resp.Cursor)
}

func TestSidebar_ExcludesRequester(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	server, chat, _, token := newServerUnderTest(t, ctrl)
	chat.EXPECT().
		Sidebar("alice").
		Return([]domain.User{{ID: "bob", FullName: "Bob Singh", Language: "hi"}}, nil).
		Times(1)

	r := httptest.NewRequest(http.MethodGet, "/api/users/sidebar", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := doRequest(server, r)

	req.Equal(http.StatusOK, w.Code)

	var resp []sidebarUserResponse
	req.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	req.Len(resp, 1)
	req.Equal("bob", resp[0].ID)
}

func multipartDocument(t *testing.T, content []byte, lang string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("document", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.WriteField("language", lang))
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func TestTranslateDocument_ReturnsPDF(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	server, _, translator, _ := newServerUnderTest(t, ctrl)
	translator.EXPECT().
		TranslateDocument(gomock.Any(), "hello everyone", "fr").
		Return("bonjour tout le monde").
		Times(1)

	body, contentType := multipartDocument(t, []byte("hello everyone"), "fr")
	r := httptest.NewRequest(http.MethodPost, "/api/documents/translate", body)
	r.Header.Set("Content-Type", contentType)
	w := doRequest(server, r)

	req.Equal(http.StatusOK, w.Code)
	req.Equal("application/pdf", w.Header().Get("Content-Type"))
	req.True(bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
}

func TestTranslateDocument_RejectsBinaryUpload(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	server, _, translator, _ := newServerUnderTest(t, ctrl)
	translator.EXPECT().
		TranslateDocument(gomock.Any(), gomock.Any(), gomock.Any()).
		Times(0)

	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}
	body, contentType := multipartDocument(t, png, "fr")
	r := httptest.NewRequest(http.MethodPost, "/api/documents/translate", body)
	r.Header.Set("Content-Type", contentType)
	w := doRequest(server, r)

	req.Equal(http.StatusBadRequest, w.Code)
}
