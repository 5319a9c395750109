package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/rbright/baserah/internal/ipc"
)

// Handle serves IPC commands for the running session.
func (c *Controller) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		return statusResponse(c.Status(), "status")
	case ipc.CommandReset:
		st, err := c.Reset(ctx)
		if err != nil {
			return errorResponse(st, err)
		}
		return statusResponse(st, "detection reset")
	case ipc.CommandVoiceShow:
		return statusResponse(c.Status(), "voice")
	case ipc.CommandVoiceSet:
		if req.Profile == nil {
			return errorResponse(c.Status(), errors.New("voice.set requires a profile"))
		}
		st, err := c.SetVoice(ctx, *req.Profile)
		if err != nil {
			return errorResponse(st, err)
		}
		return statusResponse(st, "voice override saved")
	case ipc.CommandVoiceClear:
		st, err := c.ClearVoice(ctx)
		if err != nil {
			return errorResponse(st, err)
		}
		return statusResponse(st, "voice override cleared")
	case ipc.CommandVoicePreview:
		st, err := c.Preview(ctx, req.Profile)
		if err != nil {
			return errorResponse(st, err)
		}
		return statusResponse(st, "preview started")
	default:
		return errorResponse(c.Status(), fmt.Errorf("unknown command: %s", req.Command))
	}
}

func statusResponse(st Status, message string) ipc.Response {
	v := st.Voice
	return ipc.Response{
		OK:      true,
		State:   string(st.State),
		Label:   st.Label,
		Message: message,
		Voice:   &v,
	}
}

func errorResponse(st Status, err error) ipc.Response {
	return ipc.Response{
		OK:    false,
		State: string(st.State),
		Label: st.Label,
		Error: err.Error(),
	}
}
