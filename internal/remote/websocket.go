package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

func (s *Subscriber) streamWebSocket(ctx context.Context, connected func(), deliver func([]byte)) error {
	dialCtx, cancel := context.WithTimeout(ctx, s.cfg.DialTimeout)
	conn, _, err := websocket.Dial(dialCtx, s.target, nil)
	cancel()
	if err != nil {
		return fmt.Errorf("dial remote websocket: %w", err)
	}
	defer conn.CloseNow()
	connected()

	for {
		var msg json.RawMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return errStreamClosed
			}
			if errors.Is(err, context.Canceled) {
				_ = conn.Close(websocket.StatusGoingAway, "subscriber shutting down")
				return err
			}
			return fmt.Errorf("read remote websocket: %w", err)
		}
		deliver(msg)
	}
}
