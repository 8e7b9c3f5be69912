package rpc

import (
	"bytes"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte(`{"id":"abc","method":"read_attitude"}`)
	if err := writeFrame(&buf, payload); err != nil {
 t.Fatalf("write error: %v", err)
	}
	got, err := readFrame(&buf)
	if err != nil {
 t.Fatalf("read error: %v", err)
	}
	if !bytes.Equal(got, payload) {
 t.Errorf("got %q want %q", got, payload)
	}
}

func TestRequestResponseRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	req := Request{ID: "r1", Method: MethodSlewRate}
	if err := writeRequest(&buf, req); err != nil {
 t.Fatalf("write error: %v", err)
	}
	got, err := readRequest(&buf)
	if err != nil {
 t.Fatalf("read error: %v", err)
	}
	if got.ID != req.ID || got.Method != req.Method {
 t.Errorf("got %+v want %+v", got, req)
	}

	var rbuf bytes.Buffer
	resp := Response{ID: "r1", Error: ErrorBusy, Message: "axis busy"}
	if err := writeResponse(&rbuf, resp); err != nil {
 t.Fatalf("write response error: %v", err)
	}
	gotResp, err := readResponse(&rbuf)
	if err != nil {
 t.Fatalf("read response error: %v", err)
	}
	if gotResp.Err() == nil {
 t.Fatal("expected non-nil error")
	}
}

func TestResponseErrNilWhenNoError(t *testing.T) {
	resp := Response{ID: "x"}
	if err := resp.Err(); err != nil {
 t.Errorf("expected nil error, got %v", err)
	}
}

func TestReadFrameRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0x7f, 0xff, 0xff, 0xff})
	if _, err := readFrame(&buf); err == nil {
 t.Fatal("expected error for oversized frame length")
	}
}
