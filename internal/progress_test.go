package internal

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestShowProgress(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		message string
		fn      func() error
		wantErr bool
	}{
		{
			name:    "successful function",
			message: "Testing",
			fn: func() error {
				return nil
			},
			wantErr: false,
		},
		{
			name:    "function with error",
			message: "Testing error",
			fn: func() error {
				return errors.New("test error")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ShowProgress(ctx, tt.message, tt.fn)
			if (err != nil) != tt.wantErr {
				t.Errorf("ShowProgress() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestShowProgress_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	var buf bytes.Buffer
	err := showSpinner(ctx, &buf, "Testing", func() error {
		time.Sleep(200 * time.Millisecond)
		return nil
	})

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("showSpinner() error = %v, want deadline exceeded", err)
	}
	if !strings.Contains(buf.String(), "Testing") {
		t.Errorf("spinner output should contain the message, got %q", buf.String())
	}
}

func TestShowSpinner_Result(t *testing.T) {
	var buf bytes.Buffer
	if err := showSpinner(context.Background(), &buf, "Working", func() error { return nil }); err != nil {
		t.Fatalf("showSpinner() error = %v", err)
	}
	if !strings.Contains(buf.String(), "✓") {
		t.Errorf("success output should contain a check mark, got %q", buf.String())
	}

	buf.Reset()
	wantErr := errors.New("boom")
	if err := showSpinner(context.Background(), &buf, "Working", func() error { return wantErr }); !errors.Is(err, wantErr) {
		t.Fatalf("showSpinner() error = %v, want %v", err, wantErr)
	}
	if !strings.Contains(buf.String(), "✗") {
		t.Errorf("failure output should contain a cross, got %q", buf.String())
	}
}

func TestIsTerminal_NonFile(t *testing.T) {
	if IsTerminal(&bytes.Buffer{}) {
		t.Error("IsTerminal() should be false for a buffer")
	}
}

func TestShowProgressWithSteps(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		steps   []ProgressStep
		wantErr bool
	}{
		{
			name: "successful steps",
			steps: []ProgressStep{
				{Message: "Step 1", Fn: func() error { return nil }},
				{Message: "Step 2", Fn: func() error { return nil }},
			},
			wantErr: false,
		},
		{
			name: "step with error",
			steps: []ProgressStep{
				{Message: "Step 1", Fn: func() error { return nil }},
				{Message: "Step 2", Fn: func() error { return errors.New("step error") }},
			},
			wantErr: true,
		},
		{
			name:    "empty steps",
			steps:   []ProgressStep{},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ShowProgressWithSteps(ctx, tt.steps)
			if (err != nil) != tt.wantErr {
				t.Errorf("ShowProgressWithSteps() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestProgressStep(t *testing.T) {
	step := ProgressStep{
		Message: "Test step",
		Fn: func() error {
			return nil
		},
	}

	if step.Message != "Test step" {
		t.Errorf("ProgressStep.Message = %q, want 'Test step'", step.Message)
	}

	if step.Fn == nil {
		t.Error("ProgressStep.Fn should not be nil")
	}

	err := step.Fn()
	if err != nil {
		t.Errorf("ProgressStep.Fn() error = %v, want nil", err)
	}
}
