package double

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/understudy/pkg/match"
)

func fluentSub(t *testing.T) *Substitute {
	t.Helper()
	r := NewRegistry(WithLogger(discardLogger()))
	sub, err := r.CreateSubstitute(testContract(t))
	require.NoError(t, err)
	return sub
}

// assertPanicsConfig runs fn and asserts it panics with a ConfigError
// of the given category.
func assertPanicsConfig(t *testing.T, code ConfigCode, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")
		err, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
		assert.True(t, IsConfigCode(err, code), "panic %v does not carry %s", err, code)
	}()
	fn()
}

func TestOn_NilSubstitute(t *testing.T) {
	assert.PanicsWithValue(t, ErrNilSubstitute, func() {
		On(nil, "Charge")
	})
}

func TestOn_UnknownOperation(t *testing.T) {
	sub := fluentSub(t)

	assertPanicsConfig(t, CodeOperationNotFound, func() {
		On(sub, "Refund")
	})
}

func TestStub_Return_Default(t *testing.T) {
	sub := fluentSub(t)
	On(sub, "Charge").Return("charged")

	for i := 0; i < 2; i++ {
		result, err := sub.Invoke("Charge", int64(5), "Bob")
		require.NoError(t, err)
		assert.Equal(t, "charged", result)
	}
}

func TestStub_Return_SetupTypeCheck(t *testing.T) {
	sub := fluentSub(t)

	// Charge declares a string result; an int can never satisfy it,
	// so the mistake surfaces at the setup call site.
	assertPanicsConfig(t, CodeReturnTypeMismatch, func() {
		On(sub, "Charge").Return(42)
	})
}

func TestStub_Return_VoidOperation(t *testing.T) {
	sub := fluentSub(t)

	assertPanicsConfig(t, CodeReturnTypeMismatch, func() {
		On(sub, "Notify").Return("anything")
	})
}

func TestStub_Return_DeferredPayload(t *testing.T) {
	sub := fluentSub(t)
	On(sub, "Settle").Return(7)

	result, err := sub.Invoke("Settle")
	require.NoError(t, err)

	d, ok := result.(Deferred)
	require.True(t, ok)
	payload, ok := Payload[int64](d)
	require.True(t, ok)
	assert.Equal(t, int64(7), payload)
}

func TestStub_Return_PreformedDeferred(t *testing.T) {
	sub := fluentSub(t)
	On(sub, "Settle").Return(DeferredOf(int64(99)))

	result, err := sub.Invoke("Settle")
	require.NoError(t, err)

	d, ok := result.(Deferred)
	require.True(t, ok)
	payload, _ := Payload[int64](d)
	assert.Equal(t, int64(99), payload)
}

func TestStub_WithArgs_Conditional(t *testing.T) {
	sub := fluentSub(t)
	On(sub, "Charge").WithArgs(match.Any(), "Bob").Return("for Bob")

	result, err := sub.Invoke("Charge", int64(5), "Bob")
	require.NoError(t, err)
	assert.Equal(t, "for Bob", result)

	result, err = sub.Invoke("Charge", int64(5), "Carol")
	require.NoError(t, err)
	assert.Nil(t, result, "mismatching call is swallowed")

	assert.Equal(t, int64(2), CountOf(sub, "Charge"))
	assert.Equal(t, []string{`Charge(5, "Bob")`}, HistoryOf(sub))
}

func TestStub_WithArgs_ArityPanic(t *testing.T) {
	sub := fluentSub(t)

	assertPanicsConfig(t, CodeArgCountMismatch, func() {
		On(sub, "Charge").WithArgs(int64(5))
	})
}

func TestStub_Fail(t *testing.T) {
	sub := fluentSub(t)
	boom := errors.New("card declined")
	On(sub, "Charge").Fail(boom)

	_, err := sub.Invoke("Charge", int64(5), "Bob")
	assert.ErrorIs(t, err, boom)
}

func TestStub_Fail_NilError(t *testing.T) {
	sub := fluentSub(t)

	assertPanicsConfig(t, CodeMissingCallback, func() {
		On(sub, "Charge").Fail(nil)
	})
}

func TestStub_Do(t *testing.T) {
	sub := fluentSub(t)
	On(sub, "Charge").Do(func(call *Invocation) (any, error) {
		return "seen " + call.Args[1].(string), nil
	})

	result, err := sub.Invoke("Charge", int64(5), "Bob")
	require.NoError(t, err)
	assert.Equal(t, "seen Bob", result)
}

func TestStub_Do_NilBehavior(t *testing.T) {
	sub := fluentSub(t)

	assertPanicsConfig(t, CodeMissingCallback, func() {
		On(sub, "Charge").Do(nil)
	})
}

func TestStub_Complete_VoidOperation(t *testing.T) {
	sub := fluentSub(t)
	On(sub, "Notify").Complete()

	result, err := sub.Invoke("Notify", "payment settled")
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, []string{`Notify("payment settled")`}, HistoryOf(sub))
}

func TestStub_Complete_DeferredOperation(t *testing.T) {
	sub := fluentSub(t)
	On(sub, "Flush").Complete()

	result, err := sub.Invoke("Flush")
	require.NoError(t, err)

	d, ok := result.(Deferred)
	require.True(t, ok)
	_, hasValue := d.Value()
	assert.False(t, hasValue)
}

func TestStub_Complete_ValueOperation(t *testing.T) {
	sub := fluentSub(t)

	assertPanicsConfig(t, CodeReturnTypeMismatch, func() {
		On(sub, "Charge").Complete()
	})
}

func TestStub_Sequence(t *testing.T) {
	sub := fluentSub(t)
	On(sub, "NextID").Sequence(int64(1), int64(2))

	for want := int64(1); want <= 2; want++ {
		result, err := sub.Invoke("NextID")
		require.NoError(t, err)
		assert.Equal(t, want, result)
	}

	_, err := sub.Invoke("NextID")
	assert.True(t, IsSequenceExhausted(err))
}

func TestStub_Sequence_Empty(t *testing.T) {
	sub := fluentSub(t)

	assertPanicsConfig(t, CodeEmptySequence, func() {
		On(sub, "NextID").Sequence()
	})
}

func TestStub_Sequence_SetupTypeCheck(t *testing.T) {
	sub := fluentSub(t)

	assertPanicsConfig(t, CodeReturnTypeMismatch, func() {
		On(sub, "NextID").Sequence(int64(1), "two")
	})
}

func TestStub_Sequence_WithArgs(t *testing.T) {
	sub := fluentSub(t)
	On(sub, "Charge").WithArgs(int64(5), "Bob").Sequence("once")

	result, err := sub.Invoke("Charge", int64(5), "Bob")
	require.NoError(t, err)
	assert.Equal(t, "once", result)

	// Different literals key differently; nothing is registered there.
	_, err = sub.Invoke("Charge", int64(9), "Zed")
	assert.True(t, IsUnimplemented(err))
}

func TestSetProperty(t *testing.T) {
	sub := fluentSub(t)
	SetProperty(sub, "Currency", "USD")

	result, err := sub.Invoke("Currency")
	require.NoError(t, err)
	assert.Equal(t, "USD", result)
}

func TestSetProperty_NotAProperty(t *testing.T) {
	sub := fluentSub(t)

	assertPanicsConfig(t, CodeNotAProperty, func() {
		SetProperty(sub, "Charge", "USD")
	})
}

func TestSetProperty_NilSubstitute(t *testing.T) {
	assert.PanicsWithValue(t, ErrNilSubstitute, func() {
		SetProperty(nil, "Currency", "USD")
	})
}

func TestFallback(t *testing.T) {
	sub := fluentSub(t)
	Fallback(sub, func(call *Invocation) (any, error) {
		return "fallback for " + call.Op.Name, nil
	})

	result, err := sub.Invoke("Charge", int64(5), "Bob")
	require.NoError(t, err)
	assert.Equal(t, "fallback for Charge", result)

	Fallback(sub, nil)
	_, err = sub.Invoke("Charge", int64(5), "Bob")
	assert.True(t, IsUnimplemented(err))
}

func TestCountOf_NilSubstitute(t *testing.T) {
	assert.PanicsWithValue(t, ErrNilSubstitute, func() {
		CountOf(nil, "Charge")
	})
}

func TestHistoryOf_NilSubstitute(t *testing.T) {
	assert.PanicsWithValue(t, ErrNilSubstitute, func() {
		HistoryOf(nil)
	})
}
