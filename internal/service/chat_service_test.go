package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/manabi-api/internal/dto"
	"github.com/noah-isme/manabi-api/internal/models"
	"github.com/noah-isme/manabi-api/pkg/config"
	appErrors "github.com/noah-isme/manabi-api/pkg/errors"
	"github.com/noah-isme/manabi-api/pkg/jobs"
	"github.com/noah-isme/manabi-api/pkg/realtime"
)

type fakeChatRepo struct {
	mu       sync.Mutex
	messages []models.ChatMessage
	listErr  error
}

func (f *fakeChatRepo) Create(ctx context.Context, msg *models.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg.ID = "m" + string(rune('0'+len(f.messages)))
	msg.CreatedAt = time.Now().UTC()
	f.messages = append(f.messages, *msg)
	return nil
}

func (f *fakeChatRepo) ListConversation(ctx context.Context, a, b string, since *time.Time, limit int) ([]models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ChatMessage
	for _, m := range f.messages {
		if (m.SenderEmail == a && m.ReceiverEmail == b) || (m.SenderEmail == b && m.ReceiverEmail == a) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeChatRepo) ListForUserSince(ctx context.Context, email string, since time.Time) ([]models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.ChatMessage
	for _, m := range f.messages {
		if (m.SenderEmail == email || m.ReceiverEmail == email) && m.CreatedAt.After(since) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeChatRepo) MarkRead(ctx context.Context, receiver string, ids []string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wanted := map[string]struct{}{}
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	var updated []string
	for i := range f.messages {
		m := &f.messages[i]
		if _, ok := wanted[m.ID]; ok && m.ReceiverEmail == receiver && !m.Read {
			m.Read = true
			updated = append(updated, m.ID)
		}
	}
	return updated, nil
}

func (f *fakeChatRepo) MarkConversationRead(ctx context.Context, receiver, sender string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var updated []string
	for i := range f.messages {
		m := &f.messages[i]
		if m.ReceiverEmail == receiver && m.SenderEmail == sender && !m.Read {
			m.Read = true
			updated = append(updated, m.ID)
		}
	}
	return updated, nil
}

func (f *fakeChatRepo) UnreadCounts(ctx context.Context, receiver string) ([]models.UnreadCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[string]int{}
	for _, m := range f.messages {
		if m.ReceiverEmail == receiver && !m.Read {
			counts[m.SenderEmail]++
		}
	}
	var out []models.UnreadCount
	for sender, n := range counts {
		out = append(out, models.UnreadCount{SenderEmail: sender, Count: n})
	}
	return out, nil
}

type fakeEnqueuer struct {
	jobs []jobs.Job
	err  error
}

func (f *fakeEnqueuer) TryEnqueue(job jobs.Job) error {
	f.jobs = append(f.jobs, job)
	return f.err
}

type failingBus struct{ realtime.Bus }

func (failingBus) Subscribe(ctx context.Context, topic string, onEvent func(realtime.Event)) (realtime.Subscription, error) {
	return nil, errors.New("broker down")
}

func (failingBus) Publish(ctx context.Context, event realtime.Event) error { return nil }

func chatConfig() config.ChatConfig {
	return config.ChatConfig{RealtimeEnabled: true, ChannelPrefix: "chat:", PollInterval: 10 * time.Millisecond}
}

func collect(t *testing.T, bus realtime.Bus, topic string) (func() []realtime.Event, func()) {
	t.Helper()
	var mu sync.Mutex
	var events []realtime.Event
	sub, err := bus.Subscribe(context.Background(), topic, func(e realtime.Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	})
	require.NoError(t, err)
	return func() []realtime.Event {
		mu.Lock()
		defer mu.Unlock()
		return append([]realtime.Event(nil), events...)
	}, func() { _ = sub.Close() }
}

func TestChatSendPublishesToBothParticipants(t *testing.T) {
	repo := &fakeChatRepo{}
	bus := realtime.NewMemoryBus()
	warmer := &fakeEnqueuer{}
	svc := NewChatService(repo, bus, warmer, chatConfig(), nil, nil, nil)

	senderEvents, closeSender := collect(t, bus, "chat:teacher@example.com")
	defer closeSender()
	receiverEvents, closeReceiver := collect(t, bus, "chat:ann@example.com")
	defer closeReceiver()

	resp, err := svc.Send(context.Background(), "Teacher@Example.com", dto.SendMessageRequest{To: "ANN@example.com", Text: "read https://example.com/page"})
	require.NoError(t, err)
	assert.Equal(t, "teacher@example.com", resp.SenderEmail)
	assert.Equal(t, "ann@example.com", resp.ReceiverEmail)

	require.Len(t, senderEvents(), 1)
	require.Len(t, receiverEvents(), 1)
	event := receiverEvents()[0]
	assert.Equal(t, realtime.EventInsert, event.Type)
	var payload dto.MessageResponse
	require.NoError(t, json.Unmarshal(event.Data, &payload))
	assert.Equal(t, resp.ID, payload.ID)

	require.Len(t, warmer.jobs, 1)
	assert.Equal(t, JobTypeWarmPreview, warmer.jobs[0].Type)
	assert.Equal(t, "read https://example.com/page", warmer.jobs[0].Payload)
}

func TestChatSendSkipsWarmupWithoutLinks(t *testing.T) {
	warmer := &fakeEnqueuer{err: jobs.ErrQueueFull}
	svc := NewChatService(&fakeChatRepo{}, nil, warmer, chatConfig(), nil, nil, nil)

	_, err := svc.Send(context.Background(), "a@example.com", dto.SendMessageRequest{To: "b@example.com", Text: "hello"})
	require.NoError(t, err)
	assert.Empty(t, warmer.jobs)
}

func TestChatSendValidation(t *testing.T) {
	svc := NewChatService(&fakeChatRepo{}, nil, nil, chatConfig(), nil, nil, nil)

	_, err := svc.Send(context.Background(), "a@example.com", dto.SendMessageRequest{To: "not-an-email", Text: "hi"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Send(context.Background(), "a@example.com", dto.SendMessageRequest{To: "A@example.com", Text: "hi"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestChatConversationMarksPartnerMessagesRead(t *testing.T) {
	repo := &fakeChatRepo{}
	bus := realtime.NewMemoryBus()
	svc := NewChatService(repo, bus, nil, chatConfig(), nil, nil, nil)
	ctx := context.Background()

	_, err := svc.Send(ctx, "teacher@example.com", dto.SendMessageRequest{To: "ann@example.com", Text: "one"})
	require.NoError(t, err)
	_, err = svc.Send(ctx, "ann@example.com", dto.SendMessageRequest{To: "teacher@example.com", Text: "two"})
	require.NoError(t, err)

	teacherEvents, closeSub := collect(t, bus, "chat:teacher@example.com")
	defer closeSub()

	messages, err := svc.Conversation(ctx, "ann@example.com", dto.MessageQuery{Partner: "teacher@example.com"})
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.True(t, messages[0].Read)
	assert.False(t, messages[1].Read)

	events := teacherEvents()
	require.Len(t, events, 1)
	assert.Equal(t, realtime.EventUpdate, events[0].Type)
	var receipt dto.ReadReceipt
	require.NoError(t, json.Unmarshal(events[0].Data, &receipt))
	assert.Equal(t, "ann@example.com", receipt.Reader)
	assert.Equal(t, []string{messages[0].ID}, receipt.IDs)

	unread, err := svc.Unread(ctx, "teacher@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, unread.Total)
	assert.Equal(t, 1, unread.BySender["ann@example.com"])
}

func TestChatConversationRequiresPartner(t *testing.T) {
	svc := NewChatService(&fakeChatRepo{}, nil, nil, chatConfig(), nil, nil, nil)
	_, err := svc.Conversation(context.Background(), "a@example.com", dto.MessageQuery{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestChatMarkRead(t *testing.T) {
	repo := &fakeChatRepo{}
	svc := NewChatService(repo, nil, nil, chatConfig(), nil, nil, nil)
	ctx := context.Background()
	msg, err := svc.Send(ctx, "a@example.com", dto.SendMessageRequest{To: "b@example.com", Text: "x"})
	require.NoError(t, err)

	resp, err := svc.MarkRead(ctx, "b@example.com", dto.MarkReadRequest{IDs: []string{msg.ID, "missing"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.Updated)

	resp, err = svc.MarkRead(ctx, "b@example.com", dto.MarkReadRequest{IDs: []string{msg.ID}})
	require.NoError(t, err)
	assert.Equal(t, int64(0), resp.Updated)

	_, err = svc.MarkRead(ctx, "b@example.com", dto.MarkReadRequest{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestChatStreamDeliversSubscribedEvents(t *testing.T) {
	bus := realtime.NewMemoryBus()
	svc := NewChatService(&fakeChatRepo{}, bus, nil, chatConfig(), nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := svc.Stream(ctx, "b@example.com", time.Time{})
	require.Eventually(t, func() bool {
		event, _ := realtime.NewEvent("chat:b@example.com", realtime.EventUpdate, map[string]string{"probe": "1"})
		_ = bus.Publish(context.Background(), event)
		return len(stream) > 0
	}, time.Second, 5*time.Millisecond)

	event := <-stream
	assert.Equal(t, "chat:b@example.com", event.Topic)

	cancel()
	for range stream {
	}
}

func TestChatStreamFallsBackToPolling(t *testing.T) {
	repo := &fakeChatRepo{}
	svc := NewChatService(repo, failingBus{}, nil, chatConfig(), nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := svc.Stream(ctx, "b@example.com", time.Now().Add(-time.Minute))
	_, err := svc.Send(context.Background(), "a@example.com", dto.SendMessageRequest{To: "b@example.com", Text: "polled"})
	require.NoError(t, err)

	select {
	case event := <-stream:
		assert.Equal(t, realtime.EventInsert, event.Type)
		var payload dto.MessageResponse
		require.NoError(t, json.Unmarshal(event.Data, &payload))
		assert.Equal(t, "polled", payload.Text)
	case <-time.After(time.Second):
		t.Fatal("expected polled message")
	}

	cancel()
	for range stream {
	}
}
