package middleware_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/ZEDDEV1/nozesia-sub005/id"
	"github.com/ZEDDEV1/nozesia-sub005/job"
	"github.com/ZEDDEV1/nozesia-sub005/middleware"
	"github.com/ZEDDEV1/nozesia-sub005/scope"
)

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestChain_OuterFirst(t *testing.T) {
	var order []string
	record := func(name string) middleware.Middleware {
		return func(ctx context.Context, _ *job.Job, next middleware.Handler) error {
			order = append(order, name+">")
			err := next(ctx)
			order = append(order, "<"+name)
			return err
		}
	}

	chain := middleware.Chain(record("scope"), record("timeout"))
	j := &job.Job{ID: id.NewJobID(), Type: job.TypeProcessMessage, CompanyID: "company_1"}
	err := chain(context.Background(), j, func(context.Context) error {
		order = append(order, "process_message")
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "scope> timeout> process_message <timeout <scope"
	if got := strings.Join(order, " "); got != want {
		t.Fatalf("order = %q, want %q", got, want)
	}
}

func TestChain_EmptyRunsHandler(t *testing.T) {
	called := false
	err := middleware.Chain()(context.Background(), &job.Job{Type: job.TypeSyncWhatsApp}, func(context.Context) error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Fatalf("called=%v err=%v", called, err)
	}
}

func TestChain_ShortCircuit(t *testing.T) {
	errOffline := errors.New("whatsapp session offline")
	guard := func(_ context.Context, j *job.Job, _ middleware.Handler) error {
		return fmt.Errorf("%s for %s: %w", j.Type, j.CompanyID, errOffline)
	}

	called := false
	j := &job.Job{Type: job.TypeSendAIResponse, CompanyID: "company_7"}
	err := middleware.Chain(guard)(context.Background(), j, func(context.Context) error {
		called = true
		return nil
	})
	if called {
		t.Fatal("handler must not run after a short circuit")
	}
	if !errors.Is(err, errOffline) {
		t.Fatalf("expected errOffline, got %v", err)
	}
}

func TestForTypes(t *testing.T) {
	var guarded []job.Type
	guard := middleware.ForTypes(func(ctx context.Context, j *job.Job, next middleware.Handler) error {
		guarded = append(guarded, j.Type)
		return next(ctx)
	}, job.TypeSendAIResponse, job.TypeSendNotification)

	for _, typ := range job.Types() {
		ran := false
		err := guard(context.Background(), &job.Job{Type: typ}, func(context.Context) error {
			ran = true
			return nil
		})
		if err != nil || !ran {
			t.Fatalf("%s: ran=%v err=%v", typ, ran, err)
		}
	}

	want := []job.Type{job.TypeSendAIResponse, job.TypeSendNotification}
	if !slices.Equal(guarded, want) {
		t.Fatalf("guarded = %v, want %v", guarded, want)
	}
}

func TestRecover(t *testing.T) {
	tests := []struct {
		typ     job.Type
		company string
		panic   any
		wantErr string
	}{
		{job.TypeProcessMessage, "company_1", "nil contact", "job handler panicked: process_message attempt 2: nil contact"},
		{job.TypeSendAIResponse, "company_2", errors.New("agent missing"), "job handler panicked: send_ai_response attempt 2: agent missing"},
		{job.TypeSyncWhatsApp, "", 42, "job handler panicked: sync_whatsapp attempt 2: 42"},
		{job.TypeSendNotification, "company_3", "smtp down", "job handler panicked: send_notification attempt 2: smtp down"},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			var buf bytes.Buffer
			m := middleware.Recover(slog.New(slog.NewJSONHandler(&buf, nil)))
			j := &job.Job{ID: id.NewJobID(), Type: tt.typ, CompanyID: tt.company, Attempts: 2, MaxAttempts: 3}

			err := m(context.Background(), j, func(context.Context) error { panic(tt.panic) })
			if !errors.Is(err, middleware.ErrPanic) {
				t.Fatalf("expected ErrPanic, got %v", err)
			}
			if err.Error() != tt.wantErr {
				t.Errorf("error = %q, want %q", err.Error(), tt.wantErr)
			}

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("log line: %v (%s)", err, buf.String())
			}
			if entry["job_type"] != string(tt.typ) || entry["company_id"] != tt.company {
				t.Errorf("log entry = %v", entry)
			}
			if stack, _ := entry["stack"].(string); !strings.Contains(stack, "goroutine") {
				t.Error("expected a stack trace in the log entry")
			}
		})
	}
}

func TestRecover_PassesThroughErrors(t *testing.T) {
	var buf bytes.Buffer
	m := middleware.Recover(slog.New(slog.NewJSONHandler(&buf, nil)))
	want := errors.New("contact not found")

	err := m(context.Background(), &job.Job{Type: job.TypeProcessMessage}, func(context.Context) error { return want })
	if !errors.Is(err, want) || errors.Is(err, middleware.ErrPanic) {
		t.Fatalf("err = %v, want the handler error unchanged", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("nothing should be logged, got %s", buf.String())
	}
}

func TestLogging_Success(t *testing.T) {
	logger := slog.Default()
	mw := middleware.Logging(logger)
	j := &job.Job{Type: job.TypeProcessMessage, ID: id.NewJobID(), Attempts: 1, MaxAttempts: 3}

	called := false
	err := mw(context.Background(), j, func(_ context.Context) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("handler not called")
	}
}

func TestLogging_Error(t *testing.T) {
	logger := slog.Default()
	mw := middleware.Logging(logger)
	j := &job.Job{Type: job.TypeProcessMessage, ID: id.NewJobID(), Attempts: 1, MaxAttempts: 3}
	want := errors.New("fail")

	err := mw(context.Background(), j, func(_ context.Context) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}

func TestScope_RestoresFromJob(t *testing.T) {
	mw := middleware.Scope()
	j := &job.Job{
		Type:      job.TypeSendAIResponse,
		ID:        id.NewJobID(),
		CompanyID: "company_123",
	}

	err := mw(context.Background(), j, func(ctx context.Context) error {
		got, ok := scope.Company(ctx)
		if !ok {
			t.Fatal("expected company in context")
		}
		if got != "company_123" {
			t.Errorf("Company = %q, want %q", got, "company_123")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestScope_NoOpWhenEmpty(t *testing.T) {
	mw := middleware.Scope()
	j := &job.Job{Type: job.TypeSendAIResponse, ID: id.NewJobID()}

	err := mw(context.Background(), j, func(ctx context.Context) error {
		if _, ok := scope.Company(ctx); ok {
			t.Fatal("expected no company in context for unscoped job")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTimeout(t *testing.T) {
	errSession := errors.New("whatsapp session closed")

	tests := []struct {
		name     string
		timeout  time.Duration
		handler  middleware.Handler
		wantErr  string
		deadline bool
	}{
		{
			name:    "no timeout",
			handler: func(ctx context.Context) error {
				if _, ok := ctx.Deadline(); ok {
					return errors.New("unexpected deadline")
				}
				return nil
			},
		},
		{
			name:    "finishes in time",
			timeout: time.Second,
			handler: func(ctx context.Context) error {
				if _, ok := ctx.Deadline(); !ok {
					return errors.New("missing deadline")
				}
				return nil
			},
		},
		{
			name:    "fails in time",
			timeout: time.Second,
			handler: func(context.Context) error { return errSession },
			wantErr: "whatsapp session closed",
		},
		{
			name:    "returns ctx error",
			timeout: 10 * time.Millisecond,
			handler: func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
			wantErr:  "sync_whatsapp timed out after 10ms: context deadline exceeded",
			deadline: true,
		},
		{
			name:    "returns own error after deadline",
			timeout: 10 * time.Millisecond,
			handler: func(ctx context.Context) error {
				<-ctx.Done()
				return errSession
			},
			wantErr:  "sync_whatsapp timed out after 10ms: whatsapp session closed\ncontext deadline exceeded",
			deadline: true,
		},
		{
			name:    "ignores deadline and succeeds",
			timeout: 10 * time.Millisecond,
			handler: func(ctx context.Context) error {
				<-ctx.Done()
				return nil
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := middleware.Timeout(discardLogger())
			j := &job.Job{ID: id.NewJobID(), Type: job.TypeSyncWhatsApp, CompanyID: "company_1", Attempts: 1, Timeout: tt.timeout}

			err := m(context.Background(), j, tt.handler)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Fatalf("error = %v, want %q", err, tt.wantErr)
			}
			if got := errors.Is(err, context.DeadlineExceeded); got != tt.deadline {
				t.Errorf("errors.Is(err, DeadlineExceeded) = %v, want %v", got, tt.deadline)
			}
		})
	}
}
