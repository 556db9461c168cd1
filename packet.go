package sampquery

import (
	"encoding/binary"
	"fmt"
)

// queryMagic starts every datagram in both directions, followed by the
// 4-byte IPv4 address and the little-endian port of the queried server.
var queryMagic = []byte("SAMP")

const (
	opcodePing    = 'p'
	opcodeInfo    = 'i'
	opcodePlayers = 'c'
	opcodeRules   = 'r'
	opcodeOMP     = 'o'
	opcodeRCON    = 'x'
)

// reader walks a reply datagram body. All integers are little-endian.
type reader struct {
	data   []byte
	offset int
}

func (r *reader) remaining() int {
	return len(r.data) - r.offset
}

func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncatedResponse, n, r.remaining())
	}
	b := r.data[r.offset : r.offset+n]
	r.offset += n
	return b, nil
}

func (r *reader) readBool() (bool, error) {
	b, err := r.take(1)
	if err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

func (r *reader) readUint16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *reader) readInt32() (int32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

// readBytes1 reads a string with a 1-byte length prefix.
func (r *reader) readBytes1() ([]byte, error) {
	b, err := r.take(1)
	if err != nil {
		return nil, err
	}
	return r.take(int(b[0]))
}

// readBytes4 reads a string with a 4-byte length prefix.
func (r *reader) readBytes4() ([]byte, error) {
	b, err := r.take(4)
	if err != nil {
		return nil, err
	}
	return r.take(int(binary.LittleEndian.Uint32(b)))
}

// finish asserts the datagram was fully consumed. Leftover bytes mean the
// reply does not match the declared layout and the whole decode is rejected.
func (r *reader) finish() error {
	if r.remaining() != 0 {
		return fmt.Errorf("%w: %d bytes left", ErrTrailingBytes, r.remaining())
	}
	return nil
}

// appendBytes1 appends b with a 1-byte length prefix, as used by outbound
// RCON passwords and commands.
func appendBytes1(dst, b []byte) ([]byte, error) {
	if len(b) > 0xFF {
		return nil, fmt.Errorf("string of %d bytes does not fit a 1-byte length prefix", len(b))
	}
	dst = append(dst, byte(len(b)))
	return append(dst, b...), nil
}

func parseServerInfo(data []byte, det Detector) (*ServerInfo, error) {
	r := &reader{data: data}
	info := &ServerInfo{}

	var err error
	if info.Password, err = r.readBool(); err != nil {
		return nil, err
	}
	if info.Players, err = r.readUint16(); err != nil {
		return nil, err
	}
	if info.MaxPlayers, err = r.readUint16(); err != nil {
		return nil, err
	}

	name, err := r.readBytes4()
	if err != nil {
		return nil, err
	}
	gamemode, err := r.readBytes4()
	if err != nil {
		return nil, err
	}
	language, err := r.readBytes4()
	if err != nil {
		return nil, err
	}
	if err := r.finish(); err != nil {
		return nil, err
	}

	info.Name, info.NameEncoding = decodeText(name, det)
	info.Gamemode, info.GamemodeEncoding = decodeText(gamemode, det)
	info.Language, info.LanguageEncoding = decodeText(language, det)
	return info, nil
}

func parsePlayers(data []byte) ([]Player, error) {
	r := &reader{data: data}
	count, err := r.readUint16()
	if err != nil {
		return nil, err
	}

	players := make([]Player, 0, count)
	for i := 0; i < int(count); i++ {
		name, err := r.readBytes1()
		if err != nil {
			return nil, err
		}
		score, err := r.readInt32()
		if err != nil {
			return nil, err
		}
		players = append(players, Player{Name: decodeASCII(name), Score: score})
	}
	if err := r.finish(); err != nil {
		return nil, err
	}
	return players, nil
}

func parseRules(data []byte, det Detector) ([]Rule, error) {
	r := &reader{data: data}
	count, err := r.readUint16()
	if err != nil {
		return nil, err
	}

	rules := make([]Rule, 0, count)
	for i := 0; i < int(count); i++ {
		name, err := r.readBytes1()
		if err != nil {
			return nil, err
		}
		value, err := r.readBytes1()
		if err != nil {
			return nil, err
		}
		rule := Rule{Name: decodeASCII(name)}
		rule.Value, rule.ValueEncoding = decodeText(value, det)
		rules = append(rules, rule)
	}
	if err := r.finish(); err != nil {
		return nil, err
	}
	return rules, nil
}

// parseRCONLine decodes the single length-prefixed line an RCON reply
// datagram carries.
func parseRCONLine(data []byte, det Detector) (string, error) {
	r := &reader{data: data}
	raw, err := r.readBytes1()
	if err != nil {
		return "", err
	}
	if err := r.finish(); err != nil {
		return "", err
	}
	line, _ := decodeText(raw, det)
	return line, nil
}

// encodeRCONPayload builds the 'x' request payload: length-prefixed password
// followed by length-prefixed command.
func encodeRCONPayload(password, command string) ([]byte, error) {
	pw, err := encodeText(password)
	if err != nil {
		return nil, err
	}
	cmd, err := encodeText(command)
	if err != nil {
		return nil, err
	}

	payload := make([]byte, 0, 2+len(pw)+len(cmd))
	if payload, err = appendBytes1(payload, pw); err != nil {
		return nil, err
	}
	return appendBytes1(payload, cmd)
}
