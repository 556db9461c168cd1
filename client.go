package sampquery

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
)

// pingVariance scales a measured round trip into an upper bound for further
// replies on the same link. Empirically, max/min latency on a healthy link
// stays below this ratio.
const pingVariance = 5

const maxDatagramSize = 4096

// Config controls optional Client behavior. The zero value is usable for
// queries; RCON additionally requires a password.
type Config struct {
	// RCONPassword authenticates RCON commands. Queries ignore it.
	RCONPassword string

	// Logger receives debug records for sent and received datagrams.
	// Passwords are never logged. Nil disables logging.
	Logger logrus.FieldLogger

	// Clock is used for all latency measurement and deadline arithmetic.
	// Nil means the wall clock.
	Clock clock.Clock

	// Detector sniffs the charset of inbound text. Nil means the built-in
	// statistical detector.
	Detector Detector
}

// Client queries a single SA-MP or open.mp server over one UDP association.
//
// The socket is opened lazily by the first operation. Replies are correlated
// to the client purely by header matching, so only one operation may be in
// flight per Client; callers needing concurrent queries against the same
// server must use distinct Clients.
type Client struct {
	host         string
	port         uint16
	rconPassword string

	conn     *net.UDPConn
	prefix   []byte
	clock    clock.Clock
	detector Detector
	logger   logrus.FieldLogger
}

// NewClient returns a Client for the server at host:port. No I/O happens
// until the first operation.
func NewClient(host string, port uint16, config Config) *Client {
	c := &Client{
		host:         host,
		port:         port,
		rconPassword: config.RCONPassword,
		clock:        config.Clock,
		detector:     config.Detector,
		logger:       config.Logger,
	}
	if c.clock == nil {
		c.clock = clock.New()
	}
	if c.detector == nil {
		c.detector = newChardetDetector()
	}
	return c
}

// Connect resolves the host to a concrete IPv4 address, opens a UDP socket
// connected to it and derives the correlation prefix from the resolved
// address. Operations call it implicitly; calling it again is a no-op.
func (c *Client) Connect() error {
	if c.conn != nil {
		return nil
	}

	addr, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(c.host, strconv.Itoa(int(c.port))))
	if err != nil {
		return fmt.Errorf("resolve %s: %w", c.host, err)
	}
	ip := addr.IP.To4()
	if ip == nil {
		return fmt.Errorf("resolve %s: no IPv4 address", c.host)
	}

	conn, err := net.DialUDP("udp4", nil, addr)
	if err != nil {
		return err
	}

	// The prefix must be built from what the server believes its address
	// is, which is the resolved literal, not the configured host string.
	c.host = ip.String()
	c.conn = conn
	c.prefix = make([]byte, 0, len(queryMagic)+6)
	c.prefix = append(c.prefix, queryMagic...)
	c.prefix = append(c.prefix, ip...)
	c.prefix = binary.LittleEndian.AppendUint16(c.prefix, c.port)
	return nil
}

// Close releases the client's socket, if one was opened.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Addr returns the host:port the client targets, with the host rewritten to
// the resolved literal once connected.
func (c *Client) Addr() string {
	return net.JoinHostPort(c.host, strconv.Itoa(int(c.port)))
}

// header is the leading byte sequence a reply to the given request must
// carry. Valid only after Connect.
func (c *Client) header(opcode byte, payload []byte) []byte {
	h := make([]byte, 0, len(c.prefix)+1+len(payload))
	h = append(h, c.prefix...)
	h = append(h, opcode)
	return append(h, payload...)
}

func (c *Client) send(opcode byte, payload []byte) error {
	if err := c.Connect(); err != nil {
		return err
	}

	packet := make([]byte, 0, len(c.prefix)+1+len(payload))
	packet = append(packet, c.prefix...)
	packet = append(packet, opcode)
	packet = append(packet, payload...)

	if c.logger != nil {
		c.logger.WithFields(logrus.Fields{
			"opcode": string(opcode),
			"bytes":  len(payload),
		}).Debug("sending request")
	}

	if _, err := c.conn.Write(packet); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// receive blocks until a datagram from the peer starts with header and
// returns the remainder. Non-matching datagrams are stray retransmissions or
// cross-talk and are silently discarded. The wait is bounded only by ctx's
// deadline, if it has one.
func (c *Client) receive(ctx context.Context, header []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := c.conn.SetReadDeadline(deadline); err != nil {
			return nil, err
		}
		defer c.conn.SetReadDeadline(time.Time{})
	}

	buf := make([]byte, maxDatagramSize)
	for {
		n, err := c.conn.Read(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return nil, context.DeadlineExceeded
			}
			return nil, fmt.Errorf("read: %w", err)
		}
		if n < len(header) || !bytes.Equal(buf[:len(header)], header) {
			continue
		}
		if c.logger != nil {
			c.logger.WithFields(logrus.Fields{
				"opcode": string(header[len(c.prefix)]),
				"bytes":  n - len(header),
			}).Debug("received reply")
		}
		return append([]byte(nil), buf[len(header):n]...), nil
	}
}

// receiveWithin is receive with an operation-imposed wait bound. arrived
// reports whether a matching datagram came in before the bound elapsed;
// elapsing the bound is a normal outcome, not an error. ctx expiring is
// still an error.
func (c *Client) receiveWithin(ctx context.Context, header []byte, wait time.Duration) (body []byte, arrived bool, err error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if wait <= 0 {
		return nil, false, nil
	}

	readDeadline := time.Now().Add(wait)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(readDeadline) {
		readDeadline = ctxDeadline
	}
	if err := c.conn.SetReadDeadline(readDeadline); err != nil {
		return nil, false, err
	}
	defer c.conn.SetReadDeadline(time.Time{})

	buf := make([]byte, maxDatagramSize)
	for {
		n, err := c.conn.Read(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, false, ctxErr
				}
				return nil, false, nil
			}
			return nil, false, fmt.Errorf("read: %w", err)
		}
		if n < len(header) || !bytes.Equal(buf[:len(header)], header) {
			continue
		}
		return append([]byte(nil), buf[len(header):n]...), true, nil
	}
}

func newNonce() []byte {
	nonce := make([]byte, 4)
	binary.LittleEndian.PutUint32(nonce, rand.Uint32())
	return nonce
}

// Ping measures the round-trip time to the server. The nonce exists purely
// to tell this ping's echo apart from stray or duplicate datagrams; replies
// carrying a different nonce, or any extra bytes, are discarded.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	nonce := newNonce()
	start := c.clock.Now()
	if err := c.send(opcodePing, nonce); err != nil {
		return 0, err
	}

	header := c.header(opcodePing, nonce)
	for {
		body, err := c.receive(ctx, header)
		if err != nil {
			return 0, err
		}
		if len(body) == 0 {
			return c.clock.Since(start), nil
		}
	}
}

// Info fetches the server's metadata.
func (c *Client) Info(ctx context.Context) (*ServerInfo, error) {
	if err := c.send(opcodeInfo, nil); err != nil {
		return nil, err
	}
	body, err := c.receive(ctx, c.header(opcodeInfo, nil))
	if err != nil {
		return nil, err
	}
	return parseServerInfo(body, c.detector)
}

// Players fetches the player roster. Servers stop answering this query past
// 100 players, so callers should bound it with a ctx deadline.
func (c *Client) Players(ctx context.Context) ([]Player, error) {
	if err := c.send(opcodePlayers, nil); err != nil {
		return nil, err
	}
	body, err := c.receive(ctx, c.header(opcodePlayers, nil))
	if err != nil {
		return nil, err
	}
	return parsePlayers(body)
}

// Rules fetches the server's rule set.
func (c *Client) Rules(ctx context.Context) ([]Rule, error) {
	if err := c.send(opcodeRules, nil); err != nil {
		return nil, err
	}
	body, err := c.receive(ctx, c.header(opcodeRules, nil))
	if err != nil {
		return nil, err
	}
	return parseRules(body, c.detector)
}

// IsOMP reports whether the server runs open.mp, which answers the 'o'
// probe where original SA-MP servers stay silent. Silence for pingVariance
// times a fresh ping is the negative answer, not an error.
func (c *Client) IsOMP(ctx context.Context) (bool, error) {
	ping, err := c.Ping(ctx)
	if err != nil {
		return false, err
	}

	nonce := newNonce()
	if err := c.send(opcodeOMP, nonce); err != nil {
		return false, err
	}

	header := c.header(opcodeOMP, nonce)
	deadline := c.clock.Now().Add(pingVariance * ping)
	for {
		body, arrived, err := c.receiveWithin(ctx, header, deadline.Sub(c.clock.Now()))
		if err != nil {
			return false, err
		}
		if !arrived {
			return false, nil
		}
		if len(body) == 0 {
			return true, nil
		}
	}
}
