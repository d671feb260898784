package openimage

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRunIsolated(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("boom")
	tests := []struct {
		name    string
		fn      func(context.Context) (string, error)
		want    string
		outcome outcome
	}{
		{
			name:    "success",
			fn:      func(context.Context) (string, error) { return "ok", nil },
			want:    "ok",
			outcome: outcomeSuccess,
		},
		{
			name:    "error",
			fn:      func(context.Context) (string, error) { return "ignored", errBoom },
			outcome: outcomeFailure,
		},
		{
			name:    "panic",
			fn:      func(context.Context) (string, error) { panic("classifier exploded") },
			outcome: outcomeFailure,
		},
		{
			name: "timeout",
			fn: func(ctx context.Context) (string, error) {
				<-ctx.Done()
				time.Sleep(10 * time.Millisecond)
				return "late", nil
			},
			outcome: outcomeTimeout,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var panicked bool
			got, oc, err := runIsolated(context.Background(), 50*time.Millisecond, "test",
				func(string, any) { panicked = true }, tc.fn)
			if oc != tc.outcome {
				t.Errorf("outcome = %v, want %v (err %v)", oc, tc.outcome, err)
			}
			if got != tc.want {
				t.Errorf("value = %q, want %q", got, tc.want)
			}
			if (oc == outcomeSuccess) != (err == nil) {
				t.Errorf("err = %v for outcome %v", err, oc)
			}
			if tc.name == "panic" && !panicked {
				t.Error("OnPanic was not called")
			}
		})
	}
}
