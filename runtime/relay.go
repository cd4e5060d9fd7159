// Package runtime holds the presence/relay core: the connection registry,
// the presence broadcaster, and the message relay pipeline. It orchestrates
// without containing transport or storage specifics.
package runtime

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"linguachat/contract"
	"linguachat/domain"
	"linguachat/domain/event"
	apperrors "linguachat/errors"
	"linguachat/observability"
)

// Relay executes the linear per-message pipeline:
// resolve language -> translate -> persist -> deliver if connected.
// The only suspension point is the translation call. The pipeline is not
// transactional: a later step failing never rolls back an earlier one, and
// registry/presence state is never touched on failure.
type Relay struct {
	log         *slog.Logger
	registry    contract.IRegistry
	users       contract.IUserRepository
	messages    contract.IMessageRepository
	translator  contract.ITranslator
	attachments contract.IAttachmentStore
	stats       *observability.RelayStats
}

func NewRelay(log *slog.Logger, registry contract.IRegistry,
	users contract.IUserRepository, messages contract.IMessageRepository,
	translator contract.ITranslator, attachments contract.IAttachmentStore,
	stats *observability.RelayStats) *Relay {
	return &Relay{
		log:         log,
		registry:    registry,
		users:       users,
		messages:    messages,
		translator:  translator,
		attachments: attachments,
		stats:       stats,
	}
}

func (r *Relay) Relay(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error) {
	receiver, err := r.users.GetUser(cmd.ReceiverID)
	if err != nil {
		return domain.Message{}, fmt.Errorf("resolve receiver %q: %w", cmd.ReceiverID, err)
	}
	targetLanguage := receiver.Language
	if targetLanguage == "" {
		targetLanguage = domain.DefaultLanguage
	}

	attachmentRef, err := r.uploadAttachment(ctx, cmd.Image)
	if err != nil {
		return domain.Message{}, err
	}

	// Voice messages bypass the translation pipeline entirely.
	translated := cmd.Text
	if !cmd.IsVoice {
		translated = r.translator.Translate(ctx, cmd.Text, targetLanguage)
	}

	msg := domain.Message{
		ID:             uuid.New(),
		SenderID:       cmd.SenderID,
		ReceiverID:     cmd.ReceiverID,
		OriginalText:   cmd.Text,
		TranslatedText: translated,
		AttachmentRef:  attachmentRef,
		IsVoice:        cmd.IsVoice,
		CreatedAt:      time.Now().UTC(),
	}
	if err := r.messages.StoreMessage(msg); err != nil {
		if r.stats != nil {
			r.stats.IncrPersistenceFailures()
		}
		return domain.Message{}, fmt.Errorf("persist message: %w", err)
	}

	r.deliver(ctx, msg)

	if r.stats != nil {
		r.stats.IncrMessagesRelayed()
	}
	return msg, nil
}

// deliver pushes the message to the receiver's live connection, if any.
// A routing miss is not an error: the message stays readable through the
// store once the receiver reconnects. There is no retry or queued delivery.
func (r *Relay) deliver(ctx context.Context, msg domain.Message) {
	sink, ok := r.registry.Lookup(msg.ReceiverID)
	if !ok {
		if r.stats != nil {
			r.stats.IncrRoutingMisses()
		}
		r.log.Debug("Receiver not connected, skipping live delivery",
			"receiver", msg.ReceiverID)
		return
	}

	evt := event.MessageDelivered{
		SenderID:     msg.SenderID,
		Text:         msg.TranslatedText,
		OriginalText: msg.OriginalText,
		At:           msg.CreatedAt,
	}
	if err := sink.Consume(ctx, evt); err != nil {
		if r.stats != nil {
			r.stats.IncrDeliveryFailures()
		}
		r.log.Warn("Live delivery failed",
			"receiver", msg.ReceiverID, "error", err)
	}
}

// uploadAttachment decodes the base64 image payload, sniffs its type and
// hands it to the attachment collaborator. Empty input is a no-op.
func (r *Relay) uploadAttachment(ctx context.Context, image string) (string, error) {
	if image == "" {
		return "", nil
	}

	raw, err := base64.StdEncoding.DecodeString(stripDataURL(image))
	if err != nil {
		return "", apperrors.ErrInvalidAttachment
	}
	mtype := mimetype.Detect(raw)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", apperrors.ErrInvalidAttachment
	}

	ref, err := r.attachments.Upload(ctx, raw, mtype.String())
	if err != nil {
		return "", fmt.Errorf("upload attachment: %w", err)
	}
	return ref, nil
}

// stripDataURL drops a "data:image/png;base64," style prefix if present.
func stripDataURL(image string) string {
	if strings.HasPrefix(image, "data:") {
		if idx := strings.IndexByte(image, ','); idx >= 0 {
			return image[idx+1:]
		}
	}
	return image
}
