package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/debug-flow/debug-flow/internal/api/contracts"
)

const StatusEvent = "status"

// SubscribeStatus follows the repository status event stream and calls fn for
// every snapshot. It blocks until ctx is cancelled, which is not reported as
// an error, or until the server closes the stream.
func (c *Client) SubscribeStatus(ctx context.Context, fn func(contracts.RepositoryStatus)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("/git/repository/status/stream", nil), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := c.stream.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribe to git status: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("subscribe to git status: %w", decodeError(resp))
	}
	err = readEvents(resp.Body, func(event, data string) {
		if event != StatusEvent {
			return
		}
		var st contracts.RepositoryStatus
		if err := json.Unmarshal([]byte(data), &st); err != nil {
			slog.Warn("discarding malformed status event", slog.Any("error", err))
			return
		}
		fn(st)
	})
	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read git status stream: %w", err)
	}
	return nil
}

// readEvents parses a text/event-stream body. Multi-line data fields are
// joined with newlines; comments and unknown fields are skipped.
func readEvents(r io.Reader, fn func(event, data string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)
	event := ""
	var data []string
	dispatch := func() {
		if len(data) > 0 {
			if event == "" {
				event = "message"
			}
			fn(event, strings.Join(data, "\n"))
		}
		event = ""
		data = data[:0]
	}
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			dispatch()
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			event = value
		case "data":
			data = append(data, value)
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	dispatch()
	return nil
}
