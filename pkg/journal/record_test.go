package journal

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/roach88/understudy/pkg/double"
)

func TestWriteCall_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	row := createTestRow("sub-1", 1, "Charge", `[5,"Bob"]`, `"charged"`)
	if err := s.writeCall(ctx, row); err != nil {
		t.Fatalf("first writeCall failed: %v", err)
	}

	// Rewriting the same (substitute, seq) is silently ignored.
	row.Result = `"rewritten"`
	if err := s.writeCall(ctx, row); err != nil {
		t.Fatalf("second writeCall failed: %v", err)
	}

	calls, err := s.Calls(ctx, "sub-1")
	if err != nil {
		t.Fatalf("Calls failed: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("got %d rows, expected 1", len(calls))
	}
	if calls[0].Result != "charged" {
		t.Errorf("Result = %v, expected the original write to win", calls[0].Result)
	}
}

func TestRecorder_Record(t *testing.T) {
	s := createTestStore(t)
	rec := NewRecorder(s)

	rec.Record(double.CallEvent{
		Substitute: "sub-1",
		Contract:   "PaymentGateway",
		Operation:  "Charge",
		Signature:  "Charge(int64,string)",
		Args:       []any{int64(5), "Bob"},
		Result:     "charged",
	})
	rec.Record(double.CallEvent{
		Substitute: "sub-1",
		Contract:   "PaymentGateway",
		Operation:  "NextID",
		Signature:  "NextID()",
		Result:     int64(41),
	})

	calls, err := s.Calls(context.Background(), "sub-1")
	if err != nil {
		t.Fatalf("Calls failed: %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("got %d rows, expected 2", len(calls))
	}

	first := calls[0]
	if first.Seq != 1 {
		t.Errorf("first Seq = %d, expected 1", first.Seq)
	}
	if first.Operation != "Charge" {
		t.Errorf("first Operation = %q", first.Operation)
	}
	if len(first.Args) != 2 || first.Args[0] != int64(5) || first.Args[1] != "Bob" {
		t.Errorf("first Args = %#v, expected [5 Bob] with int64 amount", first.Args)
	}
	if first.Result != "charged" {
		t.Errorf("first Result = %v", first.Result)
	}
	if !first.Replayable {
		t.Error("first row should be replayable")
	}

	second := calls[1]
	if second.Seq != 2 {
		t.Errorf("second Seq = %d, expected 2", second.Seq)
	}
	if len(second.Args) != 0 {
		t.Errorf("second Args = %#v, expected none", second.Args)
	}
	if second.Result != int64(41) {
		t.Errorf("second Result = %#v, expected int64 41", second.Result)
	}
}

func TestRecorder_Record_DeferredStoresPayload(t *testing.T) {
	s := createTestStore(t)
	rec := NewRecorder(s)

	rec.Record(double.CallEvent{
		Substitute: "sub-1",
		Contract:   "PaymentGateway",
		Operation:  "Settle",
		Signature:  "Settle()",
		Result:     double.DeferredOf(int64(42)),
	})
	rec.Record(double.CallEvent{
		Substitute: "sub-1",
		Contract:   "PaymentGateway",
		Operation:  "Flush",
		Signature:  "Flush()",
		Result:     double.DeferredDone(),
	})

	calls, err := s.Calls(context.Background(), "sub-1")
	if err != nil {
		t.Fatalf("Calls failed: %v", err)
	}
	if calls[0].Result != int64(42) {
		t.Errorf("deferred payload = %#v, expected int64 42", calls[0].Result)
	}
	if calls[1].Result != nil {
		t.Errorf("empty completion stored %#v, expected nil", calls[1].Result)
	}
}

func TestRecorder_Record_UnserializableMarksUnreplayable(t *testing.T) {
	s := createTestStore(t)
	rec := NewRecorder(s)

	rec.Record(double.CallEvent{
		Substitute: "sub-1",
		Contract:   "PaymentGateway",
		Operation:  "Notify",
		Signature:  "Notify(func())",
		Args:       []any{func() {}},
	})

	calls, err := s.Calls(context.Background(), "sub-1")
	if err != nil {
		t.Fatalf("Calls failed: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("got %d rows, expected 1", len(calls))
	}
	if calls[0].Replayable {
		t.Error("row with a func argument should be unreplayable")
	}
	// The stored text degrades to rendered placeholders for display.
	if len(calls[0].Args) != 1 {
		t.Fatalf("Args = %#v, expected one rendered placeholder", calls[0].Args)
	}
	if _, ok := calls[0].Args[0].(string); !ok {
		t.Errorf("placeholder = %#v, expected rendered text", calls[0].Args[0])
	}
}

func TestRecorder_Record_WriteFaultLoggedAndDropped(t *testing.T) {
	s := createTestStore(t)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	rec := NewRecorder(s, WithLogger(logger))

	// A closed store makes every insert fail.
	s.Close()

	rec.Record(double.CallEvent{
		Substitute: "sub-1",
		Contract:   "PaymentGateway",
		Operation:  "Charge",
		Signature:  "Charge(int64,string)",
		Args:       []any{int64(5), "Bob"},
		Result:     "charged",
	})

	if !strings.Contains(buf.String(), "journal write failed") {
		t.Errorf("write fault was not logged: %s", buf.String())
	}
}

func TestRecorder_WithClock(t *testing.T) {
	s := createTestStore(t)
	rec := NewRecorder(s, WithClock(NewClockAt(100)))

	rec.Record(double.CallEvent{
		Substitute: "sub-1",
		Contract:   "PaymentGateway",
		Operation:  "NextID",
		Signature:  "NextID()",
		Result:     int64(1),
	})

	calls, err := s.Calls(context.Background(), "sub-1")
	if err != nil {
		t.Fatalf("Calls failed: %v", err)
	}
	if calls[0].Seq != 101 {
		t.Errorf("Seq = %d, expected the clock to resume at 101", calls[0].Seq)
	}
}

func TestAtomicClock(t *testing.T) {
	c := NewClock()
	if got := c.Current(); got != 0 {
		t.Errorf("Current() = %d, expected 0", got)
	}
	if got := c.Next(); got != 1 {
		t.Errorf("Next() = %d, expected 1", got)
	}
	if got := c.Next(); got != 2 {
		t.Errorf("Next() = %d, expected 2", got)
	}
	if got := c.Current(); got != 2 {
		t.Errorf("Current() = %d, expected 2", got)
	}
}
