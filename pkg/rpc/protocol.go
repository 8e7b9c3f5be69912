// Package rpc implements the bridge protocol: a
// length-prefixed, bidirectional TCP frame protocol carrying JSON
// requests and responses between a tracker process and a bridge process
// that owns the actual mount adapter. The response envelope carries an
// error-code-plus-message shape, using a typed Go error taxonomy instead
// of numeric ASCOM-style error codes.
package rpc

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// DefaultPort is the bridge's default listening port.
const DefaultPort = 45345

// maxFrameBytes bounds a single frame's payload size as a sanity check
// against a corrupted length prefix.
const maxFrameBytes = 1 << 20

// Method names the bridge dispatches on.
const (
	MethodReadAttitude = "read_attitude"
	MethodSlewRate = "slew_rate"
	MethodSlewTo = "slew_to"
	MethodSetTrackingMode = "set_tracking_mode"
	MethodCancel = "cancel"
	MethodFrameKind = "frame_kind"
)

// ErrorKind enumerates the typed error taxonomy carried over the wire,
// mirroring pkg/mount's sentinel errors so a client can react
// identically whether talking to a local adapter or a remote bridge.
type ErrorKind string

const (
	ErrorNone ErrorKind = ""
	ErrorTransportLost ErrorKind = "transport_lost"
	ErrorDeviceError ErrorKind = "device_error"
	ErrorUnsupported ErrorKind = "unsupported"
	ErrorBusy ErrorKind = "busy"
	ErrorMalformedFrame ErrorKind = "malformed_frame"
)

// Request is one RPC call frame. ID correlates a Request with its
// Response.
type Request struct {
	ID string `json:"id"`
	Method string `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is the reply to a Request with the same ID. Exactly one of
// Result or Error is populated.
type Response struct {
	ID string `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error ErrorKind `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// Err converts a populated Error field into a Go error, or nil if the
// call succeeded.
func (r *Response) Err() error {
	if r.Error == ErrorNone {
 return nil
	}
	return &RemoteError{Kind: r.Error, Message: r.Message}
}

// RemoteError is a typed error reported by the bridge over the wire.
type RemoteError struct {
	Kind ErrorKind
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
 return fmt.Sprintf("rpc: %s", e.Kind)
	}
	return fmt.Sprintf("rpc: %s: %s", e.Kind, e.Message)
}

// Param payload shapes for each method.
type ReadAttitudeParams struct{}

type ReadAttitudeResult struct {
	Axis1 float64 `json:"axis1"`
	Axis2 float64 `json:"axis2"`
}

type SlewRateParams struct {
	Axis int `json:"axis"`
	DegPerSec float64 `json:"deg_per_sec"`
}

type SlewToParams struct {
	Axis int `json:"axis"`
	ThetaDeg float64 `json:"theta_deg"`
}

type SetTrackingModeParams struct {
	Mode int `json:"mode"`
}

type FrameKindResult struct {
	Frame string `json:"frame"`
}

// writeFrame writes a <u32 length><payload> frame to w.
func writeFrame(w io.Writer, payload []byte) error {
	if len(payload) > maxFrameBytes {
 return fmt.Errorf("rpc: frame too large: %d bytes", len(payload))
	}
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
 return err
	}
	_, err := w.Write(payload)
	return err
}

// readFrame reads one <u32 length><payload> frame from r.
func readFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
 return nil, err
	}
	n := binary.BigEndian.Uint32(header[:])
	if n > maxFrameBytes {
 return nil, fmt.Errorf("rpc: frame length %d exceeds limit", n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
 return nil, err
	}
	return payload, nil
}

func writeRequest(w io.Writer, req Request) error {
	b, err := json.Marshal(req)
	if err != nil {
 return err
	}
	return writeFrame(w, b)
}

func readRequest(r io.Reader) (Request, error) {
	var req Request
	b, err := readFrame(r)
	if err != nil {
 return req, err
	}
	if err := json.Unmarshal(b, &req); err != nil {
 return req, fmt.Errorf("rpc: %s: %w", ErrorMalformedFrame, err)
	}
	return req, nil
}

func writeResponse(w io.Writer, resp Response) error {
	b, err := json.Marshal(resp)
	if err != nil {
 return err
	}
	return writeFrame(w, b)
}

func readResponse(r io.Reader) (Response, error) {
	var resp Response
	b, err := readFrame(r)
	if err != nil {
 return resp, err
	}
	if err := json.Unmarshal(b, &resp); err != nil {
 return resp, fmt.Errorf("rpc: %s: %w", ErrorMalformedFrame, err)
	}
	return resp, nil
}

func kindFromMountError(err error) (ErrorKind, string) {
	switch {
	case err == nil:
 return ErrorNone, ""
	default:
 return errorKind(err), err.Error()
	}
}
