package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/unklstewy/nexplane/pkg/mount"
)

// Server exposes a mount.Mount over the TCP frame protocol, accepting one
// connection at a time: the bridge owns exactly one hardware device, so
// concurrent sessions make no sense and would race on the transport.
type Server struct {
	addr string
	m mount.Mount
	log *logrus.Entry

	mu sync.Mutex
	listener net.Listener
}

// NewServer builds a Server that dispatches requests to m.
func NewServer(addr string, m mount.Mount, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Server{addr: addr, m: m, log: log.WithField("component", "rpc_server")}
}

// Serve listens and handles connections sequentially until ctx is
// cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		s.log.WithField("remote", conn.RemoteAddr()).Info("bridge client connected")
		s.handleConn(ctx, conn)
		s.log.Info("bridge client disconnected")
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	for {
		req, err := readRequest(conn)
		if err != nil {
			return
		}
		resp := s.dispatch(ctx, req)
		if err := writeResponse(conn, resp); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, req Request) Response {
	resp := Response{ID: req.ID}

	switch req.Method {
	case MethodReadAttitude:
		att, err := s.m.ReadAttitude(ctx)
		if err != nil {
			resp.Error, resp.Message = kindFromMountError(err)
			return resp
		}
		resp.Result, _ = json.Marshal(ReadAttitudeResult{Axis1: att.Axis1, Axis2: att.Axis2})

	case MethodSlewRate:
		var p SlewRateParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			resp.Error, resp.Message = ErrorMalformedFrame, err.Error()
			return resp
		}
		if err := s.m.SlewRate(ctx, mount.Axis(p.Axis), p.DegPerSec); err != nil {
			resp.Error, resp.Message = kindFromMountError(err)
		}

	case MethodSlewTo:
		var p SlewToParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			resp.Error, resp.Message = ErrorMalformedFrame, err.Error()
			return resp
		}
		if err := s.m.SlewTo(ctx, mount.Axis(p.Axis), p.ThetaDeg); err != nil {
			resp.Error, resp.Message = kindFromMountError(err)
		}

	case MethodSetTrackingMode:
		var p SetTrackingModeParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			resp.Error, resp.Message = ErrorMalformedFrame, err.Error()
			return resp
		}
		if err := s.m.SetTrackingMode(ctx, mount.TrackingMode(p.Mode)); err != nil {
			resp.Error, resp.Message = kindFromMountError(err)
		}

	case MethodCancel:
		if err := s.m.Cancel(ctx); err != nil {
			resp.Error, resp.Message = kindFromMountError(err)
		}

	case MethodFrameKind:
		resp.Result, _ = json.Marshal(FrameKindResult{Frame: s.m.FrameKind().String()})

	default:
		resp.Error = ErrorUnsupported
		resp.Message = "unknown method: " + req.Method
	}

	return resp
}

// Addr returns the listener's bound address, or "" before Serve has
// started listening. Used by callers that bind to port 0 and need to
// discover the OS-assigned port.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close stops the listener so no further client is accepted. A connection
// already being served is not closed; it stays open until the client
// disconnects.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

func errorKind(err error) ErrorKind {
	var devErr *mount.DeviceError
	switch {
	case errors.Is(err, mount.ErrTransportLost):
		return ErrorTransportLost
	case errors.Is(err, mount.ErrUnsupported):
		return ErrorUnsupported
	case errors.Is(err, mount.ErrBusy):
		return ErrorBusy
	case errors.As(err, &devErr):
		return ErrorDeviceError
	default:
		return ErrorDeviceError
	}
}
