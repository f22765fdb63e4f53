package rotate_test

import (
	"testing"
	"time"

	"github.com/freenet-go/nodelog/pkg/rotate"
)

func TestSwitchRequestLifecycle(t *testing.T) {
	r := rotate.NewSwitchRequest()

	if r.Pending() {
		t.Fatal("a freshly constructed SwitchRequest should have nothing pending")
	}

	r.Request("/var/log/new-base")
	if !r.Pending() {
		t.Fatal("Pending() should report true after Request")
	}

	base, ok := r.TakePending()
	if !ok || base != "/var/log/new-base" {
		t.Fatalf("TakePending() = (%q, %v), want (\"/var/log/new-base\", true)", base, ok)
	}
	if r.Pending() {
		t.Fatal("Pending() should report false after TakePending consumes the request")
	}

	done := make(chan struct{})
	go func() {
		r.WaitForSwitch()
		close(done)
	}()

	r.NotifySwitched()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitForSwitch should return once NotifySwitched is called")
	}
}
