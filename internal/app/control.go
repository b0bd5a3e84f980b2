package app

import (
	"context"

	"github.com/rbright/aurora/internal/ipc"
	"github.com/rbright/aurora/internal/pipeline"
	"github.com/rbright/aurora/internal/session"
)

// controller is the listener surface exposed on the control socket.
type controller interface {
	Status() pipeline.Status
	Arm(context.Context) (session.Snapshot, error)
	Disarm(context.Context) (session.Snapshot, error)
}

func controlHandler(c controller) ipc.Mux {
	return ipc.Mux{
		ipc.CommandStatus: func(context.Context, ipc.Request) ipc.Response {
			status := c.Status()
			resp := snapshotResponse(status.Session)
			resp.Device = status.Device
			resp.Dropped = status.Dropped
			return resp
		},
		ipc.CommandArm: func(ctx context.Context, _ ipc.Request) ipc.Response {
			snap, err := c.Arm(ctx)
			if err != nil {
				return ipc.Response{OK: false, Error: err.Error()}
			}
			resp := snapshotResponse(snap)
			resp.Message = "armed"
			return resp
		},
		ipc.CommandDisarm: func(ctx context.Context, _ ipc.Request) ipc.Response {
			snap, err := c.Disarm(ctx)
			if err != nil {
				return ipc.Response{OK: false, Error: err.Error()}
			}
			resp := snapshotResponse(snap)
			resp.Message = "disarmed"
			return resp
		},
	}
}

func snapshotResponse(snap session.Snapshot) ipc.Response {
	return ipc.Response{
		OK:       true,
		State:    string(snap.State),
		CycleID:  snap.CycleID,
		Deadline: snap.Deadline,
	}
}
