package ws

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(ref string) *Client {
	return &Client{Reference: ref, Send: make(chan []byte, 4)}
}

func TestPaymentUpdateReachesSubscribers(t *testing.T) {
	h := NewPaymentHub()
	a := newTestClient("REF-1-AAAA")
	b := newTestClient("REF-1-AAAA")
	other := newTestClient("REF-2-BBBB")
	h.Register(a)
	h.Register(b)
	h.Register(other)

	h.PaymentUpdate("REF-1-AAAA", map[string]string{"status": "COMPLETED"})

	for _, c := range []*Client{a, b} {
		select {
		case msg := <-c.Send:
			assert.Contains(t, string(msg), "COMPLETED")
		default:
			t.Fatal("subscriber did not receive the update")
		}
	}
	select {
	case <-other.Send:
		t.Fatal("update leaked to a different reference")
	default:
	}
}

func TestSlowSubscriberIsSkipped(t *testing.T) {
	h := NewPaymentHub()
	slow := &Client{Reference: "REF-1-AAAA", Send: make(chan []byte)} // unbuffered, nobody reading
	h.Register(slow)

	done := make(chan struct{})
	go func() {
		h.PaymentUpdate("REF-1-AAAA", map[string]string{"status": "COMPLETED"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a subscriber that never reads")
	}
}

func TestCloseUnregisters(t *testing.T) {
	h := NewPaymentHub()
	c := newTestClient("REF-1-AAAA")
	h.Register(c)
	require.Equal(t, 1, h.SubscriberCount("REF-1-AAAA"))

	c.Close()
	assert.Equal(t, 0, h.SubscriberCount("REF-1-AAAA"))

	// Closing twice must not panic.
	c.Close()
}
