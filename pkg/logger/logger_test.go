package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestLoggerErrorIncludesContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})

	ctx := context.Background()
	ctx = log.WithRequestID(ctx, "req-123")
	ctx = log.WithUserID(ctx, 42)

	log.Error(ctx, "boom", errors.New("boom"))

	if !bytes.Contains(buf.Bytes(), []byte(`"request_id":"req-123"`)) {
		t.Fatalf("expected request_id to be preserved; entry=%s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"user_id":"42"`)) {
		t.Fatalf("expected user_id to be preserved; entry=%s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"stack"`)) {
		t.Fatalf("expected stack trace on error; entry=%s", buf.String())
	}
}

func TestLoggerWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf, WarnStack: true})
	log.Warn(context.Background(), "warny")
	if !bytes.Contains(buf.Bytes(), []byte(`"stack"`)) {
		t.Fatalf("expected stack when warn stack enabled")
	}

	buf.Reset()
	quiet := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})
	quiet.Warn(context.Background(), "warny")
	if bytes.Contains(buf.Bytes(), []byte(`"stack"`)) {
		t.Fatalf("did not expect stack when warn stack disabled")
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("warn"), Output: buf})
	log.Info(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered at warn level; got %s", buf.String())
	}
}

func TestParseLevelDefaults(t *testing.T) {
	if lvl := ParseLevel(""); lvl != zerolog.InfoLevel {
		t.Fatalf("expected default info level, got %v", lvl)
	}
	if lvl := ParseLevel("invalid"); lvl != zerolog.InfoLevel {
		t.Fatalf("invalid level should fallback to info, got %v", lvl)
	}
	if lvl := ParseLevel(" DEBUG "); lvl != zerolog.DebugLevel {
		t.Fatalf("expected debug, got %v", lvl)
	}
}

func TestWithPrincipalTagsCustomer(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", Output: buf, Format: "json"})
	cid := uint(9)

	log.Info(log.WithPrincipal(context.Background(), 3, "cliente", &cid), "reserva creada")
	for _, want := range []string{`"user_id":"3"`, `"actor_role":"cliente"`, `"customer_id":"9"`, `"service":"api"`} {
		if !bytes.Contains(buf.Bytes(), []byte(want)) {
			t.Fatalf("expected %s in %s", want, buf.String())
		}
	}

	buf.Reset()
	log.Info(log.WithPrincipal(context.Background(), 1, "administrador", nil), "panel")
	if bytes.Contains(buf.Bytes(), []byte(`customer_id`)) {
		t.Fatalf("staff entries must not carry customer_id: %s", buf.String())
	}
}

func TestScopedFieldsDoNotLeakToParent(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "cron-worker", Output: buf, Format: "json"})

	parent := log.WithField(context.Background(), "job", "mora-sweep")
	child := log.WithFields(parent, map[string]any{"blocked": 2})
	log.Info(child, "sweep done")
	if !bytes.Contains(buf.Bytes(), []byte(`"job":"mora-sweep"`)) || !bytes.Contains(buf.Bytes(), []byte(`"blocked":2`)) {
		t.Fatalf("child entry lost fields: %s", buf.String())
	}

	buf.Reset()
	log.Info(parent, "sweep start")
	if bytes.Contains(buf.Bytes(), []byte(`"blocked"`)) {
		t.Fatalf("child field leaked into parent: %s", buf.String())
	}
}

func TestNopDiscards(t *testing.T) {
	log := Nop()
	log.Error(log.WithRequestID(context.Background(), "r"), "ignored", errors.New("x"))
}
