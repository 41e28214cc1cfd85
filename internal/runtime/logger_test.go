package runtime

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"

	configpkg "github.com/drblury/oplog/internal/runtime/config"
	errspkg "github.com/drblury/oplog/internal/runtime/errors"
	eventpkg "github.com/drblury/oplog/internal/runtime/event"
	"github.com/drblury/oplog/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/oplog/internal/runtime/logging"
	metadatapkg "github.com/drblury/oplog/internal/runtime/metadata"
	transportpkg "github.com/drblury/oplog/transport"
)

type capturedLog struct {
	level  string
	msg    string
	err    error
	fields loggingpkg.LogFields
}

type capturingLogger struct {
	mu      sync.Mutex
	entries []capturedLog
}

func (c *capturingLogger) record(level, msg string, err error, fields loggingpkg.LogFields) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, capturedLog{level: level, msg: msg, err: err, fields: fields})
}

func (c *capturingLogger) With(fields loggingpkg.LogFields) loggingpkg.ServiceLogger { return c }
func (c *capturingLogger) Debug(msg string, fields loggingpkg.LogFields) {
	c.record("debug", msg, nil, fields)
}
func (c *capturingLogger) Info(msg string, fields loggingpkg.LogFields) {
	c.record("info", msg, nil, fields)
}
func (c *capturingLogger) Error(msg string, err error, fields loggingpkg.LogFields) {
	c.record("error", msg, err, fields)
}
func (c *capturingLogger) Trace(msg string, fields loggingpkg.LogFields) {
	c.record("trace", msg, nil, fields)
}

func (c *capturingLogger) find(level, msgContains string) (capturedLog, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if e.level == level && strings.Contains(e.msg, msgContains) {
			return e, true
		}
	}
	return capturedLog{}, false
}

type recordingPublisher struct {
	mu         sync.Mutex
	topics     []string
	messages   []*message.Message
	err        error
	failAfter  int // fail on publishes beyond this count; -1 disables
	delay      time.Duration
	closeCount int
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{failAfter: -1}
}

func (p *recordingPublisher) Publish(topic string, messages ...*message.Message) error {
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	count := len(p.messages)
	p.topics = append(p.topics, topic)
	p.messages = append(p.messages, messages...)
	if p.err != nil {
		return p.err
	}
	if p.failAfter >= 0 && count >= p.failAfter {
		return errors.New("broker unavailable")
	}
	return nil
}

func (p *recordingPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeCount++
	return nil
}

func (p *recordingPublisher) publishCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.messages)
}

type flushRecordingPublisher struct {
	recordingPublisher
	flushCount int
	flushErr   error
}

func (p *flushRecordingPublisher) Flush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flushCount++
	return p.flushErr
}

func testConfig() *configpkg.Config {
	return &configpkg.Config{
		Transport:         "channel",
		Topic:             "operate-log",
		Application:       "console",
		Environment:       "test",
		MetricsRegisterer: prometheus.NewRegistry(),
	}
}

func newTestLogger(t *testing.T, conf *configpkg.Config, pub message.Publisher, hooks PublishHooks) (*OperateLogger, *capturingLogger) {
	t.Helper()
	log := &capturingLogger{}
	l, err := New(conf, log, context.Background(), Dependencies{Publisher: pub, Hooks: hooks})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	return l, log
}

func validOp() eventpkg.Operation {
	return eventpkg.Operation{
		Type:      "CREATE_USER",
		Operator:  "admin",
		Target:    "user:42",
		RequestID: "req-8",
	}
}

func TestNewRequiresConfigAndLogger(t *testing.T) {
	_, err := New(nil, &capturingLogger{}, context.Background(), Dependencies{})
	if !errors.Is(err, errspkg.ErrConfigRequired) {
		t.Errorf("expected ErrConfigRequired, got %v", err)
	}

	_, err = New(testConfig(), nil, context.Background(), Dependencies{})
	if !errors.Is(err, errspkg.ErrLoggerRequired) {
		t.Errorf("expected ErrLoggerRequired, got %v", err)
	}
}

func TestNewRejectsInvalidConfigBeforeConnecting(t *testing.T) {
	built := false
	registry := transportpkg.NewRegistry()
	registry.Register("kafka", func(ctx context.Context, cfg transportpkg.Config, logger watermill.LoggerAdapter) (transportpkg.Transport, error) {
		built = true
		return transportpkg.Transport{}, nil
	})

	conf := &configpkg.Config{Transport: "kafka"} // no topic, no brokers
	_, err := New(conf, &capturingLogger{}, context.Background(), Dependencies{Registry: registry})

	var cve errspkg.ConfigValidationError
	if !errors.As(err, &cve) {
		t.Fatalf("expected ConfigValidationError, got %v", err)
	}
	if built {
		t.Error("transport must not be built when config validation fails")
	}
}

func TestNewBuildsViaRegistry(t *testing.T) {
	pub := newRecordingPublisher()
	registry := transportpkg.NewRegistry()
	registry.Register("channel", func(ctx context.Context, cfg transportpkg.Config, logger watermill.LoggerAdapter) (transportpkg.Transport, error) {
		return transportpkg.Transport{Publisher: pub}, nil
	})

	l, err := New(testConfig(), &capturingLogger{}, context.Background(), Dependencies{Registry: registry})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := l.LogOperation(context.Background(), validOp()); err != nil {
		t.Fatalf("unexpected publish error: %v", err)
	}
	if pub.publishCount() != 1 {
		t.Errorf("expected 1 publish through registry-built transport, got %d", pub.publishCount())
	}
}

func TestLogOperationPublishes(t *testing.T) {
	pub := newRecordingPublisher()
	l, log := newTestLogger(t, testConfig(), pub, PublishHooks{})

	operationID, err := l.LogOperation(context.Background(), validOp())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if operationID == "" {
		t.Fatal("expected non-empty operation id")
	}
	if pub.publishCount() != 1 {
		t.Fatalf("expected 1 published message, got %d", pub.publishCount())
	}
	if pub.topics[0] != "operate-log" {
		t.Errorf("published to topic %q", pub.topics[0])
	}

	msg := pub.messages[0]
	if msg.UUID == operationID {
		t.Error("message uuid and operation id must come from distinct id spaces")
	}
	if got := msg.Metadata.Get(metadatapkg.KeyOperationID); got != operationID {
		t.Errorf("metadata operation id = %q, want %q", got, operationID)
	}
	if got := msg.Metadata.Get(metadatapkg.KeyEventSchema); got != EventSchema {
		t.Errorf("metadata schema = %q", got)
	}
	if got := msg.Metadata.Get(metadatapkg.KeyCorrelationID); got != "req-8" {
		t.Errorf("metadata correlation id = %q", got)
	}
	if got := msg.Metadata.Get(metadatapkg.KeyApplication); got != "console" {
		t.Errorf("metadata application = %q", got)
	}

	var decoded map[string]any
	if err := jsoncodec.Unmarshal(msg.Payload, &decoded); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if decoded["operation_id"] != operationID {
		t.Errorf("payload operation_id = %v", decoded["operation_id"])
	}
	if decoded["application"] != "console" || decoded["environment"] != "test" {
		t.Errorf("payload missing application/environment stamps: %v", decoded)
	}

	entry, ok := log.find("info", "Operation logged")
	if !ok {
		t.Fatal("expected local diagnostic info line")
	}
	if entry.fields["operation_id"] != operationID {
		t.Errorf("diagnostic operation_id = %v", entry.fields["operation_id"])
	}
	if entry.fields["status"] != eventpkg.StatusSuccess {
		t.Errorf("diagnostic status = %v", entry.fields["status"])
	}
}

func TestLogOperationUniqueIDs(t *testing.T) {
	pub := newRecordingPublisher()
	l, _ := newTestLogger(t, testConfig(), pub, PublishHooks{})

	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		operationID, err := l.LogOperation(context.Background(), validOp())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, dup := seen[operationID]; dup {
			t.Fatalf("duplicate operation id %s", operationID)
		}
		seen[operationID] = struct{}{}
	}
}

func TestLogOperationValidationPerformsNoIO(t *testing.T) {
	pub := newRecordingPublisher()
	l, _ := newTestLogger(t, testConfig(), pub, PublishHooks{})

	_, err := l.LogOperation(context.Background(), eventpkg.Operation{Operator: "admin", Target: "x"})
	var ve *errspkg.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if pub.publishCount() != 0 {
		t.Errorf("validation failure must not reach the transport; %d messages published", pub.publishCount())
	}
}

func TestLogOperationBrokerError(t *testing.T) {
	pub := newRecordingPublisher()
	pub.err = errors.New("kafka: request timed out")
	l, log := newTestLogger(t, testConfig(), pub, PublishHooks{})

	_, err := l.LogOperation(context.Background(), validOp())

	var be *errspkg.BrokerError
	if !errors.As(err, &be) {
		t.Fatalf("expected BrokerError, got %v", err)
	}
	if be.OperationID == "" {
		t.Error("broker error must carry the operation id")
	}
	if !strings.Contains(err.Error(), "request timed out") {
		t.Errorf("cause not preserved: %v", err)
	}

	entry, ok := log.find("error", "Failed to publish")
	if !ok {
		t.Fatal("expected error diagnostic")
	}
	if entry.fields["operation_id"] != be.OperationID {
		t.Errorf("error diagnostic id = %v, want %v", entry.fields["operation_id"], be.OperationID)
	}
	if _, ok := log.find("info", "Operation logged"); !ok {
		t.Error("info diagnostic must be emitted even when the broker fails")
	}
}

func TestLogOperationAckTimeout(t *testing.T) {
	pub := newRecordingPublisher()
	pub.delay = 200 * time.Millisecond

	conf := testConfig()
	conf.AckTimeout = 10 * time.Millisecond
	l, _ := newTestLogger(t, conf, pub, PublishHooks{})

	start := time.Now()
	_, err := l.LogOperation(context.Background(), validOp())
	elapsed := time.Since(start)

	var be *errspkg.BrokerError
	if !errors.As(err, &be) {
		t.Fatalf("expected BrokerError, got %v", err)
	}
	if !errors.Is(err, errspkg.ErrAckTimeout) {
		t.Errorf("expected ErrAckTimeout in chain, got %v", err)
	}
	if elapsed >= 150*time.Millisecond {
		t.Errorf("publish did not honor the ack timeout, took %v", elapsed)
	}
}

func TestLogBatchReturnsAllIDs(t *testing.T) {
	pub := newRecordingPublisher()
	l, _ := newTestLogger(t, testConfig(), pub, PublishHooks{})

	ids, err := l.LogBatch(context.Background(), []eventpkg.Operation{validOp(), validOp(), validOp()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("expected 3 ids, got %d", len(ids))
	}
	if ids[0] == ids[1] || ids[1] == ids[2] {
		t.Error("batch ids must be unique")
	}
	if pub.publishCount() != 3 {
		t.Errorf("expected 3 published messages, got %d", pub.publishCount())
	}
}

func TestLogBatchAbortsOnFirstFailure(t *testing.T) {
	pub := newRecordingPublisher()
	pub.failAfter = 1 // second publish fails
	l, _ := newTestLogger(t, testConfig(), pub, PublishHooks{})

	ids, err := l.LogBatch(context.Background(), []eventpkg.Operation{validOp(), validOp(), validOp()})
	if err == nil {
		t.Fatal("expected batch error")
	}
	if ids != nil {
		t.Errorf("aborted batch must not return partial ids, got %v", ids)
	}
	var be *errspkg.BrokerError
	if !errors.As(err, &be) {
		t.Errorf("expected BrokerError cause, got %v", err)
	}
	// First record delivered, second attempted and failed, third never sent.
	if pub.publishCount() != 2 {
		t.Errorf("expected 2 publish attempts, got %d", pub.publishCount())
	}
}

func TestLogBatchAbortsOnValidationFailure(t *testing.T) {
	pub := newRecordingPublisher()
	l, _ := newTestLogger(t, testConfig(), pub, PublishHooks{})

	ids, err := l.LogBatch(context.Background(), []eventpkg.Operation{
		{Type: "CREATE_USER", Target: "user:1"}, // missing operator
		validOp(),
	})
	var ve *errspkg.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ids != nil {
		t.Errorf("expected nil ids, got %v", ids)
	}
	if pub.publishCount() != 0 {
		t.Errorf("no message may be sent when the first record is invalid, got %d", pub.publishCount())
	}
}

func TestHooksInvoked(t *testing.T) {
	var published, failed int
	hooks := PublishHooks{
		OnPublished: func(ctx PublishContext) { published++ },
		OnError:     func(ctx PublishContext, err error) { failed++ },
	}

	pub := newRecordingPublisher()
	l, _ := newTestLogger(t, testConfig(), pub, hooks)
	if _, err := l.LogOperation(context.Background(), validOp()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pub.err = errors.New("boom")
	if _, err := l.LogOperation(context.Background(), validOp()); err == nil {
		t.Fatal("expected publish error")
	}

	if published != 1 {
		t.Errorf("OnPublished calls = %d, want 1", published)
	}
	if failed != 1 {
		t.Errorf("OnError calls = %d, want 1", failed)
	}
}

func TestCleanupIsIdempotent(t *testing.T) {
	pub := newRecordingPublisher()
	l, _ := newTestLogger(t, testConfig(), pub, PublishHooks{})

	l.Cleanup()
	l.Cleanup()

	if pub.closeCount != 1 {
		t.Errorf("publisher closed %d times, want 1", pub.closeCount)
	}

	_, err := l.LogOperation(context.Background(), validOp())
	if !errors.Is(err, errspkg.ErrLoggerClosed) {
		t.Errorf("expected ErrLoggerClosed after cleanup, got %v", err)
	}
}

func TestCleanupSuppressesErrors(t *testing.T) {
	pub := &flushRecordingPublisher{flushErr: errors.New("flush failed")}
	pub.failAfter = -1
	l, log := newTestLogger(t, testConfig(), pub, PublishHooks{})

	l.Cleanup()

	if pub.flushCount != 1 {
		t.Errorf("flush called %d times, want 1", pub.flushCount)
	}
	if _, ok := log.find("error", "flush"); !ok {
		t.Error("expected suppressed flush error to be logged")
	}
}

func TestFlush(t *testing.T) {
	t.Run("invokes buffering transports", func(t *testing.T) {
		pub := &flushRecordingPublisher{}
		pub.failAfter = -1
		l, _ := newTestLogger(t, testConfig(), pub, PublishHooks{})

		if err := l.Flush(time.Second); err != nil {
			t.Fatalf("unexpected flush error: %v", err)
		}
		if pub.flushCount != 1 {
			t.Errorf("flush called %d times, want 1", pub.flushCount)
		}
	})

	t.Run("no-op for synchronous transports", func(t *testing.T) {
		l, _ := newTestLogger(t, testConfig(), newRecordingPublisher(), PublishHooks{})
		if err := l.Flush(time.Second); err != nil {
			t.Errorf("unexpected flush error: %v", err)
		}
	})

	t.Run("fails once closed", func(t *testing.T) {
		l, _ := newTestLogger(t, testConfig(), newRecordingPublisher(), PublishHooks{})
		if err := l.Close(); err != nil {
			t.Fatalf("unexpected close error: %v", err)
		}
		if err := l.Flush(time.Second); !errors.Is(err, errspkg.ErrLoggerClosed) {
			t.Errorf("expected ErrLoggerClosed, got %v", err)
		}
	})
}

func TestCloseTwice(t *testing.T) {
	pub := newRecordingPublisher()
	l, _ := newTestLogger(t, testConfig(), pub, PublishHooks{})

	if err := l.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("second close must be a no-op, got %v", err)
	}
	if pub.closeCount != 1 {
		t.Errorf("publisher closed %d times, want 1", pub.closeCount)
	}
}
