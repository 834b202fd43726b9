/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package alert

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/finopscloud/sla-engine/pkg/task"
)

func sampleAlert() *Alert {
	t := &task.Task{ID: "t1", Name: "Daily close", Client: "Acme"}
	st := task.Subtask{ID: "s1", Name: "Upload ledger", StartTime: "09:00", Status: task.StatusOverdue}
	a := NewOverdueAlert(t, st, 25, time.Date(2025, 6, 10, 9, 25, 0, 0, time.UTC))
	return &a
}

func TestNewOverdueAlert(t *testing.T) {
	a := sampleAlert()

	assert.NotEmpty(t, a.ID)
	assert.Equal(t, TypeSLAOverdue, a.Type)
	assert.Equal(t, "t1", a.TaskID)
	assert.Equal(t, "s1", a.SubtaskID)
	assert.Equal(t, SystemActor, a.Actor)
	assert.Contains(t, a.Message, "Upload ledger")
	assert.Contains(t, a.Message, "Daily close")
	assert.Contains(t, a.Message, "Acme")
	assert.Contains(t, a.Message, "25 minute(s)")
	assert.Equal(t, "25", a.Details["overdueMinutes"])
}

func TestNewWarningAlert(t *testing.T) {
	tk := &task.Task{ID: "t1", Name: "Daily close", Client: "Acme"}
	st := task.Subtask{ID: "s1", Name: "Upload ledger", StartTime: "09:00"}
	a := NewWarningAlert(tk, st, 10, time.Now())

	assert.Equal(t, TypeSLAWarning, a.Type)
	assert.Contains(t, a.Message, "starts in 10 minute(s)")
}

func TestLogSink(t *testing.T) {
	sink := NewLogSink(zap.NewNop())
	assert.Equal(t, "log", sink.Name())
	assert.NoError(t, sink.Write(context.Background(), sampleAlert()))
	assert.NoError(t, sink.Close())
}

func TestWebhookSink(t *testing.T) {
	var received Alert
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "secret", r.Header.Get("X-Token"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sink := NewWebhookSink(WebhookSinkConfig{
		Name:    "test",
		URL:     srv.URL,
		Headers: map[string]string{"X-Token": "secret"},
	}, zap.NewNop())

	a := sampleAlert()
	require.NoError(t, sink.Write(context.Background(), a))
	assert.Equal(t, a.ID, received.ID)
	assert.Equal(t, TypeSLAOverdue, received.Type)
}

func TestWebhookSink_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	sink := NewWebhookSink(WebhookSinkConfig{URL: srv.URL}, zap.NewNop())
	assert.Error(t, sink.Write(context.Background(), sampleAlert()))
	assert.Equal(t, "webhook", sink.Name())
}

type failingSink struct {
	writes int
}

func (f *failingSink) Write(context.Context, *Alert) error {
	f.writes++
	return errors.New("sink down")
}
func (f *failingSink) Close() error { return nil }
func (f *failingSink) Name() string { return "failing" }

type recordingSink struct {
	alerts []*Alert
}

func (r *recordingSink) Write(_ context.Context, a *Alert) error {
	r.alerts = append(r.alerts, a)
	return nil
}
func (r *recordingSink) Close() error { return nil }
func (r *recordingSink) Name() string { return "recording" }

func TestMultiSink_FailingSinkDoesNotBlockOthers(t *testing.T) {
	failing := &failingSink{}
	recording := &recordingSink{}
	multi := NewMultiSink([]Sink{failing, recording}, zap.NewNop())

	err := multi.Write(context.Background(), sampleAlert())
	assert.Error(t, err)
	assert.Equal(t, 1, failing.writes)
	assert.Len(t, recording.alerts, 1)
	assert.NoError(t, multi.Close())
}

func TestClassifyKafkaError(t *testing.T) {
	assert.Equal(t, "", classifyKafkaError(nil))
	assert.Equal(t, "timeout", classifyKafkaError(context.DeadlineExceeded))
	assert.Equal(t, "cancelled", classifyKafkaError(context.Canceled))
	assert.Equal(t, "auth", classifyKafkaError(errors.New("SASL handshake failed")))
	assert.Equal(t, "network", classifyKafkaError(errors.New("dial tcp: connection refused")))
	assert.Equal(t, "topic", classifyKafkaError(errors.New("unknown topic or partition")))
	assert.Equal(t, "other", classifyKafkaError(errors.New("boom")))
}

func TestNewKafkaSink_Validation(t *testing.T) {
	_, err := NewKafkaSink(KafkaSinkConfig{Topic: "alerts"}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewKafkaSink(KafkaSinkConfig{Brokers: []string{"localhost:9092"}}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewKafkaSink(KafkaSinkConfig{
		Brokers:       []string{"localhost:9092"},
		Topic:         "alerts",
		SASLMechanism: "NTLM",
	}, zap.NewNop())
	assert.Error(t, err)

	sink, err := NewKafkaSink(KafkaSinkConfig{
		Brokers: []string{"localhost:9092"},
		Topic:   "alerts",
	}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "kafka", sink.Name())
	assert.NoError(t, sink.Close())
	// Closed sink rejects writes.
	assert.Error(t, sink.Write(context.Background(), sampleAlert()))
}
