package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/unklstewy/nexplane/pkg/mount"
)

// Client is a mount.Mount implementation that forwards every call to a
// bridge process over the TCP frame protocol, reconnecting with
// exponential backoff on transport loss. It does not
// implement mount.SelfAligning: alignment state lives with whatever
// concrete adapter the bridge wraps, not with the RPC transport.
type Client struct {
	addr string
	log  *logrus.Entry

	mu      sync.Mutex
	conn    net.Conn
	backoff *backoff

	frame      mount.FrameKind
	frameKnown bool // set once the bridge has answered a frame_kind query
}

// Dial returns a Client for the bridge at addr (host:port) without
// connecting. The connection is established lazily on first use, so Dial
// itself never blocks the caller on backoff.
func Dial(addr string, log *logrus.Entry) *Client {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Client{addr: addr, log: log.WithField("component", "rpc_client"), backoff: newBackoff()}
}

func (c *Client) ensureConn(ctx context.Context) (net.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return c.conn, nil
	}
	var d net.Dialer
	for {
		conn, err := d.DialContext(ctx, "tcp", c.addr)
		if err == nil {
			c.conn = conn
			c.backoff.reset()
			c.log.Info("connected to bridge")
			return conn, nil
		}
		c.log.WithError(err).Warn("bridge dial failed, backing off")
		if werr := c.backoff.wait(ctx); werr != nil {
			return nil, werr
		}
	}
}

func (c *Client) dropConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// call sends req and waits for its matching response. On any transport
// failure it drops the connection and fails this request immediately with
// ErrTransportLost rather than resending it: the mount's state may have
// changed during the outage, so replaying a stale SlewRate/SlewTo is not
// safe. The next call reconnects from scratch.
func (c *Client) call(ctx context.Context, method string, params interface{}) (Response, error) {
	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return Response{}, err
		}
		raw = b
	}
	req := Request{ID: uuid.NewString(), Method: method, Params: raw}

	conn, err := c.ensureConn(ctx)
	if err != nil {
		return Response{}, err
	}
	if err := writeRequest(conn, req); err != nil {
		c.dropConn()
		return Response{}, mount.ErrTransportLost
	}
	resp, err := readResponse(conn)
	if err != nil {
		c.dropConn()
		return Response{}, mount.ErrTransportLost
	}
	if resp.ID != req.ID {
		c.dropConn()
		return Response{}, fmt.Errorf("rpc: response id mismatch")
	}
	return resp, nil
}

func (c *Client) ReadAttitude(ctx context.Context) (mount.Attitude, error) {
	resp, err := c.call(ctx, MethodReadAttitude, ReadAttitudeParams{})
	if err != nil {
		return mount.Attitude{}, err
	}
	if err := resp.Err(); err != nil {
		return mount.Attitude{}, toMountError(err)
	}
	var res ReadAttitudeResult
	if err := json.Unmarshal(resp.Result, &res); err != nil {
		return mount.Attitude{}, err
	}
	return mount.Attitude{Axis1: res.Axis1, Axis2: res.Axis2}, nil
}

func (c *Client) SlewRate(ctx context.Context, axis mount.Axis, degPerSec float64) error {
	resp, err := c.call(ctx, MethodSlewRate, SlewRateParams{Axis: int(axis), DegPerSec: degPerSec})
	if err != nil {
		return err
	}
	return toMountError(resp.Err())
}

func (c *Client) SlewTo(ctx context.Context, axis mount.Axis, thetaDeg float64) error {
	resp, err := c.call(ctx, MethodSlewTo, SlewToParams{Axis: int(axis), ThetaDeg: thetaDeg})
	if err != nil {
		return err
	}
	return toMountError(resp.Err())
}

func (c *Client) SetTrackingMode(ctx context.Context, mode mount.TrackingMode) error {
	resp, err := c.call(ctx, MethodSetTrackingMode, SetTrackingModeParams{Mode: int(mode)})
	if err != nil {
		return err
	}
	return toMountError(resp.Err())
}

func (c *Client) Cancel(ctx context.Context) error {
	resp, err := c.call(ctx, MethodCancel, nil)
	if err != nil {
		return err
	}
	return toMountError(resp.Err())
}

// FrameKind queries the bridge once and caches the result: a mount's
// frame kind is constant for the session.
func (c *Client) FrameKind() mount.FrameKind {
	if c.frameKnown {
		return c.frame
	}
	if c.frame != mount.FrameAltAz && c.frame != mount.FrameEquatorial {
		c.frame = mount.FrameAltAz
	}
	resp, err := c.call(context.Background(), MethodFrameKind, nil)
	if err != nil || resp.Err() != nil {
		return c.frame
	}
	var res FrameKindResult
	if json.Unmarshal(resp.Result, &res) == nil && res.Frame == "equatorial" {
		c.frame = mount.FrameEquatorial
	} else {
		c.frame = mount.FrameAltAz
	}
	c.frameKnown = true
	return c.frame
}

// MaxRateDegPerSec is not known to the client without a protocol
// extension; the bridge enforces its own adapter's limit regardless, so
// the client reports a conservative default used only for local sanity
// checks before a command is sent.
func (c *Client) MaxRateDegPerSec() float64 { return 5.0 }

// Close disconnects from the bridge.
func (c *Client) Close() error {
	c.dropConn()
	return nil
}

func toMountError(err error) error {
	if err == nil {
		return nil
	}
	remote, ok := err.(*RemoteError)
	if !ok {
		return err
	}
	switch remote.Kind {
	case ErrorTransportLost:
		return mount.ErrTransportLost
	case ErrorUnsupported:
		return mount.ErrUnsupported
	case ErrorBusy:
		return mount.ErrBusy
	default:
		return &mount.DeviceError{Message: remote.Message}
	}
}
