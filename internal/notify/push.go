package notify

import (
	"context"
	"os"

	firebase "firebase.google.com/go"
	"firebase.google.com/go/messaging"
	"google.golang.org/api/option"

	"github.com/trendrunner/tokentrader/internal/logx"
)

var pushLog = logx.New("push")

// PushService mirrors Notifier's nil-receiver-safe shape: absent
// credentials disable it rather than failing the process.
type PushService struct {
	client *messaging.Client
	topic  string
	queue  chan pushMessage
}

type pushMessage struct {
	title, body string
	data        map[string]string
}

// NewPushService loads serviceAccountKey.json from credPath; a missing
// file disables push and returns nil, same contract as Notifier.
func NewPushService(credPath, topic string) *PushService {
	if _, err := os.Stat(credPath); os.IsNotExist(err) {
		pushLog.Printf("credentials file %s not found, push disabled", credPath)
		return nil
	}

	app, err := firebase.NewApp(context.Background(), nil, option.WithCredentialsFile(credPath))
	if err != nil {
		pushLog.Printf("init failed: %v", err)
		return nil
	}
	client, err := app.Messaging(context.Background())
	if err != nil {
		pushLog.Printf("messaging client failed: %v", err)
		return nil
	}

	ps := &PushService{client: client, topic: topic, queue: make(chan pushMessage, 500)}
	return ps
}

// StartWorker drains the send queue, one FCM call at a time. Run in its
// own goroutine.
func (ps *PushService) StartWorker(ctx context.Context) {
	if ps == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-ps.queue:
			message := &messaging.Message{
				Notification: &messaging.Notification{Title: msg.title, Body: msg.body},
				Data:         msg.data,
				Topic:        ps.topic,
			}
			if _, err := ps.client.Send(context.Background(), message); err != nil {
				pushLog.Printf("send failed: %v", err)
			}
		}
	}
}

// NotifyCritical enqueues a push for a sentinel CRITICAL/DANGER transition
// or a LIVE execution fault, the two event classes severe enough to wake
// someone away from Telegram.
func (ps *PushService) NotifyCritical(title, body string, data map[string]string) {
	if ps == nil {
		return
	}
	select {
	case ps.queue <- pushMessage{title: title, body: body, data: data}:
	default:
		pushLog.Println("queue full, dropping push")
	}
}
