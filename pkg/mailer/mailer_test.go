package mailer

import (
	"context"
	"errors"
	"testing"

	"github.com/biblionet/biblionet-backend/pkg/config"
	"github.com/biblionet/biblionet-backend/pkg/logger"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithoutKeyReturnsLogSender(t *testing.T) {
	sender := New(config.SendgridConfig{}, logger.Nop())
	_, ok := sender.(*LogSender)
	require.True(t, ok)
	assert.NoError(t, sender.Send(context.Background(), Message{ToEmail: "ana@example.com"}))
}

func TestSendGridBuildsMessage(t *testing.T) {
	var captured *mail.SGMailV3
	s := &SendGrid{
		fromEmail: "no-reply@biblionet.hn",
		fromName:  "BiblioNet",
		send: func(_ context.Context, msg *mail.SGMailV3) (int, string, error) {
			captured = msg
			return 202, "", nil
		},
	}

	err := s.Send(context.Background(), Message{
		ToEmail: "ana@example.com",
		ToName:  "Ana",
		Subject: "Préstamo vencido",
		Text:    "Tu préstamo venció.",
	})
	require.NoError(t, err)
	require.NotNil(t, captured)
	assert.Equal(t, "Préstamo vencido", captured.Subject)
	assert.Equal(t, "no-reply@biblionet.hn", captured.From.Address)
	require.Len(t, captured.Personalizations, 1)
	assert.Equal(t, "ana@example.com", captured.Personalizations[0].To[0].Address)
}

func TestSendGridSurfacesFailures(t *testing.T) {
	s := &SendGrid{send: func(context.Context, *mail.SGMailV3) (int, string, error) {
		return 401, "unauthorized", nil
	}}
	err := s.Send(context.Background(), Message{ToEmail: "ana@example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")

	s.send = func(context.Context, *mail.SGMailV3) (int, string, error) {
		return 0, "", errors.New("dial tcp")
	}
	assert.Error(t, s.Send(context.Background(), Message{ToEmail: "ana@example.com"}))
	assert.Error(t, s.Send(context.Background(), Message{}))
}
