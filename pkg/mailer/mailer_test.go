package mailer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewPicksLogSenderWithoutKey(t *testing.T) {
	_, ok := New(Config{}, nil).(*LogSender)
	assert.True(t, ok)

	_, ok = New(Config{APIKey: "SG.key", FromEmail: "no-reply@example.com"}, nil).(*SendGridSender)
	assert.True(t, ok)
}

func TestMessageValidate(t *testing.T) {
	assert.Error(t, Message{TextBody: "hi"}.Validate())
	assert.Error(t, Message{ToEmail: "a@example.com"}.Validate())
	assert.NoError(t, Message{ToEmail: "a@example.com", HTMLBody: "<p>hi</p>"}.Validate())
}

func TestLogSenderWritesMessage(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sender := NewLogSender(zap.New(core))

	err := sender.Send(context.Background(), Message{ToEmail: "ada@example.com", Subject: "Booking accepted", TextBody: "See you"})
	require.NoError(t, err)

	entries := logs.FilterMessage("email").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "ada@example.com", entries[0].ContextMap()["to"])
	assert.Equal(t, "Booking accepted", entries[0].ContextMap()["subject"])
}

func TestSendGridPrepare(t *testing.T) {
	sender := NewSendGridSender(Config{APIKey: "k", FromEmail: "no-reply@example.com", FromName: "TutorFinder", SubjectTag: "TutorFinder"})
	m := sender.prepare(Message{ToName: "Ada", ToEmail: "ada@example.com", Subject: "Hello", TextBody: "plain"})

	require.Len(t, m.Personalizations, 1)
	assert.Equal(t, "[TutorFinder] Hello", m.Personalizations[0].Subject)
	assert.Equal(t, "ada@example.com", m.Personalizations[0].To[0].Address)
	assert.Equal(t, "no-reply@example.com", m.From.Address)
	require.Len(t, m.Content, 1)
	assert.Equal(t, "text/plain", m.Content[0].Type)
}
