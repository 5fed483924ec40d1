package journal

import (
	"context"
	"fmt"
	"testing"

	"github.com/roach88/understudy/pkg/contract"
	"github.com/roach88/understudy/pkg/double"
)

func paymentContract(t *testing.T) *contract.Contract {
	t.Helper()
	c, err := contract.New("PaymentGateway",
		contract.Operation{
			Name: "Charge",
			Params: []contract.Param{
				{Name: "amount", Type: "int64"},
				{Name: "holder", Type: "string"},
			},
			Returns: contract.Return{Shape: contract.ShapeValue, Type: "string"},
		},
		contract.Operation{
			Name:    "NextID",
			Returns: contract.Return{Shape: contract.ShapeValue, Type: "int64"},
		},
		contract.Operation{
			Name:    "Settle",
			Returns: contract.Return{Shape: contract.ShapeDeferredValue, Type: "int64"},
		},
	)
	if err != nil {
		t.Fatalf("contract.New failed: %v", err)
	}
	return c
}

// recordingTarget creates a substitute whose completed calls land in s
// under the token "rec-1".
func recordingTarget(t *testing.T, s *Store) *double.Substitute {
	t.Helper()
	reg := double.NewRegistry(
		double.WithTokenGenerator(double.NewFixedTokenGenerator("rec-1")),
		double.WithRecorder(NewRecorder(s)),
	)
	sub, err := reg.CreateSubstitute(paymentContract(t))
	if err != nil {
		t.Fatalf("CreateSubstitute failed: %v", err)
	}
	return sub
}

// replayTarget creates a fresh substitute and returns it with its
// engine for Replay to configure.
func replayTarget(t *testing.T) (*double.Substitute, *double.Engine) {
	t.Helper()
	reg := double.NewRegistry()
	sub, err := reg.CreateSubstitute(paymentContract(t))
	if err != nil {
		t.Fatalf("CreateSubstitute failed: %v", err)
	}
	eng, err := reg.EngineFor(sub)
	if err != nil {
		t.Fatalf("EngineFor failed: %v", err)
	}
	return sub, eng
}

func mustInvoke(t *testing.T, sub *double.Substitute, operation string, args ...any) any {
	t.Helper()
	result, err := sub.Invoke(operation, args...)
	if err != nil {
		t.Fatalf("Invoke(%s) failed: %v", operation, err)
	}
	return result
}

func TestReplay_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// Record a session.
	rec := recordingTarget(t, s)
	double.On(rec, "Charge").WithArgs(int64(5), "Bob").Sequence("first", "second")
	double.On(rec, "NextID").Sequence(int64(10), int64(11))

	mustInvoke(t, rec, "Charge", int64(5), "Bob")
	mustInvoke(t, rec, "NextID")
	mustInvoke(t, rec, "Charge", int64(5), "Bob")
	mustInvoke(t, rec, "NextID")

	// Replay it onto a fresh substitute.
	sub, eng := replayTarget(t)
	stats, err := Replay(ctx, s, "rec-1", eng)
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	if stats.Calls != 4 || stats.Groups != 2 || stats.Skipped != 0 {
		t.Errorf("stats = %+v, expected 4 calls in 2 groups", stats)
	}

	// The replayed substitute answers call for call.
	if got := mustInvoke(t, sub, "Charge", int64(5), "Bob"); got != "first" {
		t.Errorf("first Charge = %v, expected %q", got, "first")
	}
	if got := mustInvoke(t, sub, "Charge", int64(5), "Bob"); got != "second" {
		t.Errorf("second Charge = %v, expected %q", got, "second")
	}
	if _, err := sub.Invoke("Charge", int64(5), "Bob"); !double.IsSequenceExhausted(err) {
		t.Errorf("third Charge err = %v, expected sequence exhaustion", err)
	}

	if got := mustInvoke(t, sub, "NextID"); got != int64(10) {
		t.Errorf("first NextID = %#v, expected int64 10", got)
	}
	if got := mustInvoke(t, sub, "NextID"); got != int64(11) {
		t.Errorf("second NextID = %#v, expected int64 11", got)
	}
}

func TestReplay_DistinctArgumentGroups(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := recordingTarget(t, s)
	count := 0
	double.On(rec, "Charge").Do(func(call *double.Invocation) (any, error) {
		count++
		return fmt.Sprintf("%s-%d", call.Args[1], count), nil
	})

	mustInvoke(t, rec, "Charge", int64(5), "Bob")
	mustInvoke(t, rec, "Charge", int64(7), "Ann")
	mustInvoke(t, rec, "Charge", int64(5), "Bob")

	sub, eng := replayTarget(t)
	stats, err := Replay(ctx, s, "rec-1", eng)
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	if stats.Groups != 2 {
		t.Errorf("Groups = %d, expected one sequence per argument group", stats.Groups)
	}

	// Each group replays independently, in recorded order.
	if got := mustInvoke(t, sub, "Charge", int64(5), "Bob"); got != "Bob-1" {
		t.Errorf("Bob's first = %v", got)
	}
	if got := mustInvoke(t, sub, "Charge", int64(7), "Ann"); got != "Ann-2" {
		t.Errorf("Ann's first = %v", got)
	}
	if got := mustInvoke(t, sub, "Charge", int64(5), "Bob"); got != "Bob-3" {
		t.Errorf("Bob's second = %v", got)
	}
}

func TestReplay_DeferredPayload(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := recordingTarget(t, s)
	double.On(rec, "Settle").Return(42)
	mustInvoke(t, rec, "Settle")

	sub, eng := replayTarget(t)
	if _, err := Replay(ctx, s, "rec-1", eng); err != nil {
		t.Fatalf("Replay failed: %v", err)
	}

	result := mustInvoke(t, sub, "Settle")
	d, ok := result.(double.Deferred)
	if !ok {
		t.Fatalf("result = %#v, expected a Deferred", result)
	}
	payload, ok := double.Payload[int64](d)
	if !ok || payload != 42 {
		t.Errorf("payload = %v (%v), expected int64 42", payload, ok)
	}
}

func TestReplay_ContractMismatch(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := recordingTarget(t, s)
	double.On(rec, "NextID").Return(int64(1))
	mustInvoke(t, rec, "NextID")

	other, err := contract.New("Ledger",
		contract.Operation{Name: "Post", Returns: contract.Return{Shape: contract.ShapeValue, Type: "int64"}},
	)
	if err != nil {
		t.Fatalf("contract.New failed: %v", err)
	}
	reg := double.NewRegistry()
	sub, err := reg.CreateSubstitute(other)
	if err != nil {
		t.Fatalf("CreateSubstitute failed: %v", err)
	}
	eng, err := reg.EngineFor(sub)
	if err != nil {
		t.Fatalf("EngineFor failed: %v", err)
	}

	if _, err := Replay(ctx, s, "rec-1", eng); err == nil {
		t.Error("expected a contract mismatch error")
	}
}

func TestReplay_UnknownSubstitute(t *testing.T) {
	s := createTestStore(t)

	_, eng := replayTarget(t)
	if _, err := Replay(context.Background(), s, "no-such", eng); err == nil {
		t.Error("expected an error for an empty recording")
	}
}

func TestReplay_SkipsUnreplayableRows(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	bad := createTestRow("rec-1", 1, "NextID", `["(func())(nil)"]`, `"dropped"`)
	bad.Replayable = false
	if err := s.writeCall(ctx, bad); err != nil {
		t.Fatalf("writeCall failed: %v", err)
	}
	if err := s.writeCall(ctx, createTestRow("rec-1", 2, "NextID", "[]", "7")); err != nil {
		t.Fatalf("writeCall failed: %v", err)
	}

	sub, eng := replayTarget(t)
	stats, err := Replay(ctx, s, "rec-1", eng)
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	if stats.Skipped != 1 || stats.Calls != 1 || stats.Groups != 1 {
		t.Errorf("stats = %+v, expected 1 skipped, 1 replayed", stats)
	}

	if got := mustInvoke(t, sub, "NextID"); got != int64(7) {
		t.Errorf("NextID = %#v, expected int64 7", got)
	}
}

func TestReplay_UnknownOperation(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.writeCall(ctx, createTestRow("rec-1", 1, "Refund", `[5]`, `"refunded"`)); err != nil {
		t.Fatalf("writeCall failed: %v", err)
	}

	_, eng := replayTarget(t)
	if _, err := Replay(ctx, s, "rec-1", eng); err == nil {
		t.Error("expected an error for an operation outside the contract")
	}
}
