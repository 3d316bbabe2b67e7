package verdictevents

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	json "github.com/goccy/go-json"

	"github.com/mohammed-shakir/ogcapi-features-ets/pkg/verdict"
)

func TestPublisher_SendsJSONKeyedByRun(t *testing.T) {
	prod := mocks.NewAsyncProducer(t, mocks.NewTestConfig())

	var got []Event
	var keys []string
	for range 2 {
		prod.ExpectInputWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
			k, _ := msg.Key.Encode()
			keys = append(keys, string(k))
			b, err := msg.Value.Encode()
			if err != nil {
				return err
			}
			var ev Event
			if err := json.Unmarshal(b, &ev); err != nil {
				return err
			}
			got = append(got, ev)
			return nil
		})
	}

	p := NewWithProducer(slog.New(slog.NewTextHandler(io.Discard, nil)), prod, "ets-verdicts", 8)
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p.Publish(Event{RunID: "r1", Group: "collections", Collection: "water", Check: "default-crs", Status: verdict.StatusFail, Reason: "missing", TS: ts})
	p.Publish(Event{RunID: "r1", Group: "landing-page", Check: "landing-page", Status: verdict.StatusPass, TS: ts})

	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("published %d events want 2", len(got))
	}
	if got[0].Collection != "water" || got[0].Status != verdict.StatusFail || got[0].Reason != "missing" {
		t.Fatalf("unexpected first event %+v", got[0])
	}
	if keys[0] != "r1" || keys[1] != "r1" {
		t.Fatalf("keys=%v", keys)
	}
}

func TestEvent_StatusIsText(t *testing.T) {
	b, err := json.Marshal(Event{RunID: "r", Status: verdict.StatusSkip})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if raw["status"] != "skip" {
		t.Fatalf("status=%v want skip", raw["status"])
	}
}
