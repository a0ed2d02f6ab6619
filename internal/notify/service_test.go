package notify

import (
	"context"
	"testing"
)

func TestCanonicalizePhone(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "plain digits", in: "15551234567", want: "15551234567"},
		{name: "formatted number", in: "+1 (555) 123-4567", want: "15551234567"},
		{name: "whatsapp jid user part", in: "15551234567", want: "15551234567"},
		{name: "empty", in: "", wantErr: true},
		{name: "no digits", in: "not-a-number", wantErr: true},
		{name: "too short", in: "12345", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := canonicalizePhone(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("canonicalizePhone(%q) expected error, got %q", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("canonicalizePhone(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("canonicalizePhone(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNoopServiceSendMessage(t *testing.T) {
	svc := NewNoopService()
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if err := svc.SendMessage(context.Background(), "15551234567", "hello"); err != nil {
		t.Errorf("SendMessage returned error: %v", err)
	}
	select {
	case r := <-svc.Receipts():
		t.Errorf("NoopService emitted unexpected receipt: %+v", r)
	default:
	}
	if err := svc.Stop(); err != nil {
		t.Errorf("Stop returned error: %v", err)
	}
}

func TestTwilioServiceSendEmitsReceipt(t *testing.T) {
	sender := NewMockTwilioSender()
	svc := NewTwilioService(sender)

	if err := svc.SendMessage(context.Background(), "+1 (555) 123-4567", "time to plan your day"); err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}

	if len(sender.Sent) != 1 {
		t.Fatalf("expected 1 sent message, got %d", len(sender.Sent))
	}
	if sender.Sent[0].To != "15551234567" {
		t.Errorf("expected canonicalized recipient, got %q", sender.Sent[0].To)
	}

	select {
	case r := <-svc.Receipts():
		if r.To != "15551234567" || r.Status != "sent" {
			t.Errorf("unexpected receipt: %+v", r)
		}
	default:
		t.Error("expected a sent receipt on the receipts channel")
	}
}

func TestTwilioServiceStoppedRejectsSends(t *testing.T) {
	svc := NewTwilioService(NewMockTwilioSender())
	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	if err := svc.SendMessage(context.Background(), "15551234567", "hi"); err != ErrServiceStopped {
		t.Errorf("expected ErrServiceStopped, got %v", err)
	}
	// Stop is idempotent.
	if err := svc.Stop(); err != nil {
		t.Errorf("second Stop returned error: %v", err)
	}
}

func TestTwilioServiceEmitResponse(t *testing.T) {
	svc := NewTwilioService(NewMockTwilioSender())
	svc.EmitResponse(responseFixture("15551234567", "feeling stuck"))

	select {
	case resp := <-svc.Responses():
		if resp.From != "15551234567" || resp.Body != "feeling stuck" {
			t.Errorf("unexpected response: %+v", resp)
		}
	default:
		t.Error("expected response on the responses channel")
	}
}
