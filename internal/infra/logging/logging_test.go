package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func captureLogger(buf *bytes.Buffer) *zerolog.Logger {
	l := zerolog.New(buf)
	return &l
}

func TestWithAttachesContextFields(t *testing.T) {
	var buf bytes.Buffer
	base := captureLogger(&buf)

	ctx := WithJobID(context.Background(), "chat_00000001_1")
	ctx = WithUserID(ctx, "u-42")
	ctx = WithQueue(ctx, "chat")
	With(ctx, base).Info().Msg("submitted")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatal(err)
	}
	if line["job_id"] != "chat_00000001_1" || line["user_id"] != "u-42" || line["queue"] != "chat" {
		t.Errorf("log line = %v", line)
	}
}

func TestWithEmptyContextAddsNothing(t *testing.T) {
	var buf bytes.Buffer
	base := captureLogger(&buf)

	With(context.Background(), base).Info().Msg("plain")

	out := buf.String()
	for _, field := range []string{"job_id", "user_id", "queue"} {
		if strings.Contains(out, field) {
			t.Errorf("unexpected %s field in %s", field, out)
		}
	}
}

func TestTraceDurationLogsStartAndFinish(t *testing.T) {
	prev := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	defer zerolog.SetGlobalLevel(prev)

	var buf bytes.Buffer
	base := captureLogger(&buf)

	TraceDuration(base, "Dispatcher.SubmitChatQuery")()

	out := buf.String()
	if strings.Count(out, "Dispatcher.SubmitChatQuery") != 2 {
		t.Fatalf("want start and finish lines, got: %s", out)
	}
	if !strings.Contains(out, "duration") {
		t.Errorf("finish line missing duration: %s", out)
	}
}
