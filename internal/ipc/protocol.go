package ipc

import (
	"errors"
	"time"
)

// Commands understood by the listener socket.
const (
	CommandStatus = "status"
	CommandArm    = "arm"
	CommandDisarm = "disarm"
)

// Request is one newline-delimited JSON request.
type Request struct {
	Command string `json:"command"`
}

// Response is one newline-delimited JSON response.
type Response struct {
	OK       bool      `json:"ok"`
	State    string    `json:"state,omitempty"`
	CycleID  string    `json:"cycle_id,omitempty"`
	Deadline time.Time `json:"deadline,omitzero"`
	Device   string    `json:"device,omitempty"`
	Dropped  uint64    `json:"dropped_chunks,omitempty"`
	Message  string    `json:"message,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Err converts a failed response into an error.
func (r Response) Err() error {
	if r.OK {
		return nil
	}
	if r.Error == "" {
		return errors.New("request failed")
	}
	return errors.New(r.Error)
}
