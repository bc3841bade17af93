package pg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestCompact_CollapsesWhitespaceRuns(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]string{
		"select 1":                            "select 1",
		"  select   1  ":                      " select 1 ",
		"SELECT\t*\nFROM\r\tcommits WHERE  repo =  $1": "SELECT * FROM commits WHERE repo = $1",
		"\n\nA\n\tB  C\r\nD":                  " A B C D",
		"":                                    "",
	} {
		if got := compact(in); got != want {
			t.Errorf("compact(%q) = %q, want %q", in, got, want)
		}
	}
}

// traceLine mirrors the fields the sql tracer writes per statement.
type traceLine struct {
	Level     string  `json:"level"`
	ElapsedMS float64 `json:"elapsed_ms"`
	Slow      bool    `json:"slow"`
	SQL       string  `json:"sql"`
	Args      []any   `json:"args"`
	Error     string  `json:"error"`
	Message   string  `json:"message"`
	Component string  `json:"component"`
}

func traceOne(t *testing.T, ev QueryEvent) traceLine {
	t.Helper()

	var buf bytes.Buffer
	Tracer(zerolog.New(&buf)).OnQuery(context.Background(), ev)

	var line traceLine
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("unmarshal trace line: %v\nraw=%s", err, buf.String())
	}
	return line
}

func TestTracer_FastQueryLogsInfo(t *testing.T) {
	t.Parallel()

	line := traceOne(t, QueryEvent{
		SQL:       "SELECT  hash \n FROM  commits\tWHERE repo = $1",
		Args:      []any{"platform-api"},
		ElapsedUS: 12500,
		Err:       errors.New("conn lost"),
	})

	if line.Level != "info" || line.Slow {
		t.Fatalf("fast query should log info/slow=false, got level=%q slow=%v", line.Level, line.Slow)
	}
	if line.ElapsedMS != 12.5 {
		t.Fatalf("elapsed_ms = %v, want 12.5", line.ElapsedMS)
	}
	if line.SQL != "SELECT hash FROM commits WHERE repo = $1" {
		t.Fatalf("sql not compacted: %q", line.SQL)
	}
	if len(line.Args) != 1 || line.Args[0] != "platform-api" {
		t.Fatalf("args = %#v", line.Args)
	}
	if line.Error != "conn lost" {
		t.Fatalf("error = %q", line.Error)
	}
	if line.Message != "pg query" || line.Component != "pg" {
		t.Fatalf("message=%q component=%q", line.Message, line.Component)
	}
}

func TestTracer_SlowQueryEscalatesToWarn(t *testing.T) {
	t.Parallel()

	line := traceOne(t, QueryEvent{
		SQL:       "UPDATE issues SET status = $1",
		Args:      []any{"Done"},
		ElapsedUS: 2100000,
		Slow:      true,
	})

	if line.Level != "warn" || !line.Slow {
		t.Fatalf("slow query should log warn/slow=true, got level=%q slow=%v", line.Level, line.Slow)
	}
	if line.ElapsedMS != 2100 {
		t.Fatalf("elapsed_ms = %v, want 2100", line.ElapsedMS)
	}
	if line.Error != "" {
		t.Fatalf("no error expected, got %q", line.Error)
	}
}
