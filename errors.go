package sampquery

import "errors"

var (
	// ErrMissingRCONPassword is returned by RCON when the client was built
	// without a password. No packet is sent in that case.
	ErrMissingRCONPassword = errors.New("no RCON password configured")

	// ErrInvalidRCONPassword is returned when the server's entire RCON reply
	// is its literal password-rejection line.
	ErrInvalidRCONPassword = errors.New("invalid RCON password")

	// ErrRCONDisabled is returned when an RCON command produced no reply at
	// all within the collection window. The wire protocol cannot distinguish
	// a disabled RCON from a silently-empty valid command or an unreachable
	// endpoint, so all three surface as this error.
	ErrRCONDisabled = errors.New("RCON disabled or no response")

	// ErrUnencodableText is returned before any I/O when an outbound string
	// contains characters expressible in none of the supported code pages.
	ErrUnencodableText = errors.New("text not encodable in any supported code page")

	ErrTruncatedResponse = errors.New("response truncated")
	ErrTrailingBytes     = errors.New("trailing bytes after response")
)
