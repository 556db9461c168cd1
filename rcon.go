package sampquery

import (
	"context"
	"strings"
)

// invalidPasswordReply is the server's literal rejection line.
const invalidPasswordReply = "Invalid RCON password."

// RCON sends one administrative command and returns the server's output with
// lines joined by newlines.
//
// The reply arrives as an unknown number of unordered datagrams with no
// sequence numbers and no end-of-stream marker; the only signal that output
// is finished is that datagrams stop arriving. Collection therefore runs
// against a deadline seeded with pingVariance times a fresh round-trip
// measurement and extended, on each received line, by exactly the time spent
// waiting for it. The window stays open while the server keeps its cadence
// and closes one window after it goes quiet. There is no early completion:
// even a single-line reply waits out its window.
func (c *Client) RCON(ctx context.Context, command string) (string, error) {
	if c.rconPassword == "" {
		return "", ErrMissingRCONPassword
	}

	payload, err := encodeRCONPayload(c.rconPassword, command)
	if err != nil {
		return "", err
	}

	rtt, err := c.Ping(ctx)
	if err != nil {
		return "", err
	}

	if err := c.send(opcodeRCON, payload); err != nil {
		return "", err
	}

	header := c.header(opcodeRCON, nil)
	deadline := c.clock.Now().Add(pingVariance * rtt)

	var lines []string
	for {
		waitStart := c.clock.Now()
		body, arrived, err := c.receiveWithin(ctx, header, deadline.Sub(waitStart))
		if err != nil {
			return "", err
		}
		if !arrived {
			break
		}

		line, err := parseRCONLine(body, c.detector)
		if err != nil {
			return "", err
		}
		lines = append(lines, line)
		deadline = deadline.Add(c.clock.Since(waitStart))
	}

	if len(lines) == 0 {
		return "", ErrRCONDisabled
	}

	output := strings.Join(lines, "\n")
	if output == invalidPasswordReply {
		return "", ErrInvalidRCONPassword
	}
	return output, nil
}
