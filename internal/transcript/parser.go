// Package transcript parses the host's append-only JSONL conversation log.
package transcript

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"
	"time"
)

// ParseFile reads a JSONL transcript and extracts assistant turns in file
// order plus an aggregate token total.
//
// A missing or unreadable file yields an empty Result: the caller must treat
// that as "no new data", not as failure. Malformed lines (including a partial
// final line written mid-append) are skipped individually. Turns repeating an
// id already seen in the same parse are skipped; their usage is not recounted.
func ParseFile(path string) Result {
	f, err := os.Open(path)
	if err != nil {
		return Result{}
	}
	defer func() { _ = f.Close() }()

	var res Result
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 256*1024), 2*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var entry rawEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			res.Summary.ParseErrors++
			continue
		}

		switch entry.Type {
		case "user":
			res.Summary.UserMessages++
		case "assistant":
			parseAssistant(&res, seen, entry)
		}
		// Unrecognized types are ignored.
	}

	return res
}

func parseAssistant(res *Result, seen map[string]bool, entry rawEntry) {
	msg := entry.Message
	if msg == nil {
		return
	}

	if res.Summary.Model == "" && msg.Model != "" {
		res.Summary.Model = msg.Model
	}

	id := entry.UUID
	if id == "" {
		id = msg.ID
	}
	if id != "" {
		if seen[id] {
			return
		}
		seen[id] = true
	}

	var texts []string
	for _, part := range msg.Content {
		switch part.Type {
		case "text":
			if part.Text != "" {
				texts = append(texts, part.Text)
			}
		case "tool_use":
			res.Summary.ToolCalls++
		}
		// "thinking" parts never contribute display text.
	}

	if u := msg.Usage; u != nil {
		res.Usage.Input += u.InputTokens + u.CacheReadInputTokens + u.CacheCreationInputTokens
		res.Usage.Output += u.OutputTokens
	}

	// Turns without any stable id still count toward usage above but cannot
	// be deduplicated across invocations, so they are not emitted.
	if id == "" {
		return
	}

	ts, _ := time.Parse(time.RFC3339Nano, entry.Timestamp)
	res.Turns = append(res.Turns, Turn{
		ID:        id,
		Text:      strings.Join(texts, "\n"),
		Model:     msg.Model,
		Timestamp: ts,
	})
}
