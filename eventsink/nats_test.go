package eventsink

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type published struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{subject: subject, data: append([]byte(nil), data...)})
	return nil
}

func (f *fakePublisher) all() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.msgs...)
}

func TestNATSSinkPublishesJSONByType(t *testing.T) {
	pub := &fakePublisher{}
	sink := NewNATSSink(pub, "shop.session.", nil)

	at := time.Unix(1_700_000_000, 0).UTC()
	sink.Emit(context.Background(), goSession.AuditEvent{
		Timestamp: at,
		Type:      goSession.AuditEventLoginSuccess,
		Username:  "alice",
		Role:      "merchant",
		Success:   true,
	})

	msgs := pub.all()
	require.Len(t, msgs, 1)
	assert.Equal(t, "shop.session.login_success", msgs[0].subject)

	var got goSession.AuditEvent
	require.NoError(t, json.Unmarshal(msgs[0].data, &got))
	assert.Equal(t, "alice", got.Username)
	assert.True(t, got.Timestamp.Equal(at))
	assert.Equal(t, uint64(1), sink.Published())
}

func TestNATSSinkLogsPublishFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	pub := &fakePublisher{err: errors.New("nats: connection closed")}
	sink := NewNATSSink(pub, "", zap.New(core))

	sink.Emit(context.Background(), goSession.AuditEvent{Type: goSession.AuditEventLogout})

	assert.Equal(t, uint64(1), sink.Failed())
	assert.Equal(t, uint64(0), sink.Published())
	require.Equal(t, 1, logs.FilterMessage("failed to publish audit event").Len())
	assert.Equal(t, "gosession.logout", sink.Subject(goSession.AuditEventLogout))
}

func TestNATSSinkThroughController(t *testing.T) {
	pub := &fakePublisher{}
	cfg := goSession.DefaultConfig()
	cfg.Audit.Enabled = true

	c, err := goSession.New().WithConfig(cfg).WithAuditSink(NewNATSSink(pub, "", nil)).Build()
	require.NoError(t, err)

	c.Logout(context.Background())
	require.NoError(t, c.Close())

	msgs := pub.all()
	require.Len(t, msgs, 1)
	assert.Equal(t, "gosession.logout", msgs[0].subject)
}

func TestForwardLogouts(t *testing.T) {
	pub := &fakePublisher{}
	c, err := goSession.New().Build()
	require.NoError(t, err)
	defer c.Close()

	stop := ForwardLogouts(c, pub, "", nil)
	c.Logout(context.Background())

	msgs := pub.all()
	require.Len(t, msgs, 1)
	assert.Equal(t, "gosession.logout.user", msgs[0].subject)

	var got LogoutMessage
	require.NoError(t, json.Unmarshal(msgs[0].data, &got))
	assert.Equal(t, "user", got.Reason)
	assert.Equal(t, "customer", got.Role)

	stop()
	c.Logout(context.Background())
	assert.Len(t, pub.all(), 1)
}
