package document

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	apperrors "linguachat/errors"
	"linguachat/mocks"
)

func TestService_TranslatePlainTextDocument(t *testing.T) {
	req := require.New(t)
	log := slog.Default()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	translator := mocks.NewMockITranslator(ctrl)
	translator.EXPECT().
		TranslateDocument(gomock.Any(), "hello everyone", "fr").
		Return("bonjour tout le monde").
		Times(1)

	service := NewService(log, PlainTextExtractor{}, translator)

	pdf, err := service.TranslateDocument(context.Background(), []byte("hello everyone"), "fr")

	req.NoError(err)
	req.True(bytes.HasPrefix(pdf, []byte("%PDF")))
}

func TestService_RejectsBinaryDocument(t *testing.T) {
	req := require.New(t)
	log := slog.Default()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	translator := mocks.NewMockITranslator(ctrl)
	translator.EXPECT().
		TranslateDocument(gomock.Any(), gomock.Any(), gomock.Any()).
		Times(0)

	service := NewService(log, PlainTextExtractor{}, translator)

	// PNG magic, clearly not a text document
	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}
	_, err := service.TranslateDocument(context.Background(), png, "fr")

	req.ErrorIs(err, apperrors.ErrUnsupportedDocument)
}

func TestService_OversizedDocumentStillRenders(t *testing.T) {
	req := require.New(t)
	log := slog.Default()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// Way more text than one A4 page holds
	longText := strings.Repeat("this line repeats until the page overflows. ", 500)

	translator := mocks.NewMockITranslator(ctrl)
	translator.EXPECT().
		TranslateDocument(gomock.Any(), longText, "hi").
		Return(longText).
		Times(1)

	service := NewService(log, PlainTextExtractor{}, translator)

	pdf, err := service.TranslateDocument(context.Background(), []byte(longText), "hi")

	// Truncation is silent; the caller still gets a valid single page
	req.NoError(err)
	req.True(bytes.HasPrefix(pdf, []byte("%PDF")))
}

func TestPlainTextExtractor(t *testing.T) {
	req := require.New(t)

	text, err := PlainTextExtractor{}.Extract([]byte("some notes"), "text/plain; charset=utf-8")
	req.NoError(err)
	req.Equal("some notes", text)

	_, err = PlainTextExtractor{}.Extract([]byte{0x00, 0x01}, "application/octet-stream")
	req.ErrorIs(err, apperrors.ErrUnsupportedDocument)
}
