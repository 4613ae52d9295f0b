package smtp

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"github.com/JakeFAU/narration-leads/internal/lead"
)

type fakeSender struct {
	sent []*mail.Msg
	err  error
}

func (f *fakeSender) DialAndSendWithContext(_ context.Context, messages ...*mail.Msg) error {
	f.sent = append(f.sent, messages...)
	return f.err
}

var testConfig = Config{
	Host:     "smtp.example.com",
	Port:     587,
	Username: "forms@example.com",
	Password: "secret",
	FromName: "Contact Form",
	To:       "success@narration.design",
}

func TestNotifySendsRenderedMessage(t *testing.T) {
	t.Parallel()

	s := &fakeSender{}
	n := newWithSender(testConfig, s)
	err := n.Notify(context.Background(), lead.ContactMessage{
		Name: "Ada", Email: "ada@example.com", Message: "Please narrate my memoir.",
	})
	require.NoError(t, err)
	require.Len(t, s.sent, 1)

	msg := s.sent[0]
	require.Equal(t, []string{"New Contact Form Submission from Ada"}, msg.GetGenHeader(mail.HeaderSubject))
	require.Equal(t, []string{`"Contact Form" <forms@example.com>`}, msg.GetAddrHeaderString(mail.HeaderFrom))
	require.Equal(t, []string{"<success@narration.design>"}, msg.GetAddrHeaderString(mail.HeaderTo))

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	require.Contains(t, buf.String(), "Please narrate my memoir.")
}

func TestNotifyWrapsTransportError(t *testing.T) {
	t.Parallel()

	n := newWithSender(testConfig, &fakeSender{err: errors.New("535 auth failed")})
	err := n.Notify(context.Background(), lead.EstimateLead{
		Email: "reader@example.com", WordCount: 9000, Genre: "romance", SelectedService: lead.TierFullCast,
	})
	require.ErrorContains(t, err, "send notification")
}

func TestNewRequiresCredentials(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Host: "smtp.example.com", Port: 587, To: "x@example.com"})
	require.ErrorIs(t, err, lead.ErrConfigurationMissing)

	n, err := New(testConfig)
	require.NoError(t, err)
	require.NotNil(t, n)
}
