package websocket

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	nws "nhooyr.io/websocket"
)

// watchReadLimit allows state updates carrying a long move history
const watchReadLimit = 4 << 20

// Watch connects to a hub endpoint as a read-only client and calls handle for every
// message of sessionID until ctx is done, the server closes the connection or handle
// returns an error. wsURL is the endpoint without query, e.g. ws://localhost:8080/ws.
func Watch(ctx context.Context, wsURL, sessionID string, handle func(*Message) error) error {
	u, err := url.Parse(wsURL)
	if err != nil {
		return fmt.Errorf("invalid websocket url: %w", err)
	}
	q := u.Query()
	q.Set("session", sessionID)
	u.RawQuery = q.Encode()

	c, _, err := nws.Dial(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", u.Redacted(), err)
	}
	defer c.Close(nws.StatusNormalClosure, "")
	c.SetReadLimit(watchReadLimit)

	for {
		_, data, err := c.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if nws.CloseStatus(err) == nws.StatusNormalClosure || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		// The hub may batch queued messages into one frame, one JSON document per line
		for _, line := range bytes.Split(data, []byte{'\n'}) {
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			var message Message
			if err := json.Unmarshal(line, &message); err != nil {
				return fmt.Errorf("decode message: %w", err)
			}
			if err := handle(&message); err != nil {
				return err
			}
		}
	}
}
