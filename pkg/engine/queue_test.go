package engine

import "testing"

func TestInbox_RejectsWhenFull(t *testing.T) {
	in := newInbox(2)
	if !in.TrySend(SetANCIntensity{Intensity: 0.1}) {
		t.Fatal("first send rejected")
	}
	if !in.TrySend(SetANCIntensity{Intensity: 0.2}) {
		t.Fatal("second send rejected")
	}
	if in.TrySend(SetANCIntensity{Intensity: 0.3}) {
		t.Fatal("send accepted on full inbox")
	}

	// Earlier messages survive the rejected one.
	msg, ok := in.tryRecv()
	if !ok {
		t.Fatal("tryRecv empty after sends")
	}
	if got := msg.(SetANCIntensity).Intensity; got != 0.1 {
		t.Fatalf("first message intensity = %v, want 0.1", got)
	}
}

func TestInbox_TryRecvEmpty(t *testing.T) {
	in := newInbox(1)
	if msg, ok := in.tryRecv(); ok {
		t.Fatalf("tryRecv on empty inbox = %v, want nothing", msg)
	}
}

func TestOutbox_DropsOldestWhenFull(t *testing.T) {
	o := newOutbox(3)
	for i := 0; i < 5; i++ {
		o.publish(ProcessingError{Message: string(rune('a' + i))})
	}

	if got := o.Dropped(); got != 2 {
		t.Fatalf("Dropped = %d, want 2", got)
	}

	// The survivors are the newest three, in order.
	want := []string{"c", "d", "e"}
	for i, w := range want {
		select {
		case m := <-o.Receive():
			if got := m.(ProcessingError).Message; got != w {
				t.Fatalf("message %d = %q, want %q", i, got, w)
			}
		default:
			t.Fatalf("outbox empty at message %d", i)
		}
	}
	select {
	case m := <-o.Receive():
		t.Fatalf("unexpected extra message %v", m)
	default:
	}
}

func TestOutbox_DroppedStartsAtZero(t *testing.T) {
	o := newOutbox(4)
	o.publish(Ready{})
	o.publish(Ready{})
	if got := o.Dropped(); got != 0 {
		t.Fatalf("Dropped = %d before any overflow, want 0", got)
	}
}
