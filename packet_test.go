package sampquery

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticDetector pins inbound decoding to one charset so tests don't depend
// on statistical detection.
type staticDetector struct {
	name string
	err  error
}

func (d staticDetector) Detect([]byte) (string, error) {
	return d.name, d.err
}

var cp1252Detector = staticDetector{name: "windows-1252"}

func infoBody(password bool, players, maxPlayers uint16, name, gamemode, language string) []byte {
	b := []byte{0}
	if password {
		b[0] = 1
	}
	b = binary.LittleEndian.AppendUint16(b, players)
	b = binary.LittleEndian.AppendUint16(b, maxPlayers)
	for _, s := range []string{name, gamemode, language} {
		b = binary.LittleEndian.AppendUint32(b, uint32(len(s)))
		b = append(b, s...)
	}
	return b
}

func playersBody(players ...Player) []byte {
	b := binary.LittleEndian.AppendUint16(nil, uint16(len(players)))
	for _, p := range players {
		b = append(b, byte(len(p.Name)))
		b = append(b, p.Name...)
		b = binary.LittleEndian.AppendUint32(b, uint32(p.Score))
	}
	return b
}

func rulesBody(rules ...Rule) []byte {
	b := binary.LittleEndian.AppendUint16(nil, uint16(len(rules)))
	for _, r := range rules {
		b = append(b, byte(len(r.Name)))
		b = append(b, r.Name...)
		b = append(b, byte(len(r.Value)))
		b = append(b, r.Value...)
	}
	return b
}

func rconLineBody(line string) []byte {
	return append([]byte{byte(len(line))}, line...)
}

func TestParseServerInfo(t *testing.T) {
	body := infoBody(true, 12, 50, "Grand Larceny", "GL 1.4", "English")

	info, err := parseServerInfo(body, cp1252Detector)
	require.NoError(t, err)

	assert.Equal(t, &ServerInfo{
		Name:             "Grand Larceny",
		Gamemode:         "GL 1.4",
		Language:         "English",
		Password:         true,
		Players:          12,
		MaxPlayers:       50,
		NameEncoding:     "windows-1252",
		GamemodeEncoding: "windows-1252",
		LanguageEncoding: "windows-1252",
	}, info)
}

func TestParseServerInfoCharset(t *testing.T) {
	// 0xE9 is 'é' in windows-1252.
	body := infoBody(false, 0, 10, "Caf\xe9", "fr", "Fran\xe7ais")

	info, err := parseServerInfo(body, staticDetector{name: "windows-1252"})
	require.NoError(t, err)

	assert.Equal(t, "Café", info.Name)
	assert.Equal(t, "Français", info.Language)
	assert.Equal(t, "windows-1252", info.NameEncoding)
}

func TestParseServerInfoMalformed(t *testing.T) {
	valid := infoBody(false, 3, 20, "server", "gm", "en")

	tests := []struct {
		name    string
		body    []byte
		wantErr error
	}{
		{"empty", nil, ErrTruncatedResponse},
		{"cut mid header", valid[:3], ErrTruncatedResponse},
		{"cut mid string", valid[:len(valid)-1], ErrTruncatedResponse},
		{"trailing byte", append(append([]byte(nil), valid...), 0x00), ErrTrailingBytes},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseServerInfo(tt.body, cp1252Detector)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParsePlayers(t *testing.T) {
	want := []Player{
		{Name: "Kalcor", Score: 420},
		{Name: "Jernej", Score: -3},
	}

	players, err := parsePlayers(playersBody(want...))
	require.NoError(t, err)
	assert.Equal(t, want, players)
}

func TestParsePlayersEmpty(t *testing.T) {
	players, err := parsePlayers(playersBody())
	require.NoError(t, err)
	assert.Empty(t, players)
}

func TestParsePlayersNonASCII(t *testing.T) {
	body := playersBody(Player{Name: "na\xefve", Score: 1})

	players, err := parsePlayers(body)
	require.NoError(t, err)
	assert.Equal(t, "na?ve", players[0].Name)
}

func TestParsePlayersMalformed(t *testing.T) {
	valid := playersBody(Player{Name: "a", Score: 1})

	_, err := parsePlayers(valid[:len(valid)-2])
	require.ErrorIs(t, err, ErrTruncatedResponse)

	_, err = parsePlayers(append(append([]byte(nil), valid...), 0xFF))
	require.ErrorIs(t, err, ErrTrailingBytes)
}

func TestParseRules(t *testing.T) {
	body := rulesBody(
		Rule{Name: "weather", Value: "10"},
		Rule{Name: "worldtime", Value: "12:00"},
	)

	rules, err := parseRules(body, cp1252Detector)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, Rule{Name: "weather", Value: "10", ValueEncoding: "windows-1252"}, rules[0])
	assert.Equal(t, "worldtime", rules[1].Name)
	assert.Equal(t, "12:00", rules[1].Value)
}

func TestParseRulesMalformed(t *testing.T) {
	valid := rulesBody(Rule{Name: "gravity", Value: "0.008"})

	_, err := parseRules(valid[:4], cp1252Detector)
	require.ErrorIs(t, err, ErrTruncatedResponse)

	_, err = parseRules(append(append([]byte(nil), valid...), 0x00), cp1252Detector)
	require.ErrorIs(t, err, ErrTrailingBytes)
}

func TestParseRCONLine(t *testing.T) {
	line, err := parseRCONLine(rconLineBody("console: hi"), cp1252Detector)
	require.NoError(t, err)
	assert.Equal(t, "console: hi", line)
}

func TestParseRCONLineTrailingBytes(t *testing.T) {
	body := append(rconLineBody("one"), 0x03, 't', 'w', 'o')
	_, err := parseRCONLine(body, cp1252Detector)
	require.ErrorIs(t, err, ErrTrailingBytes)
}

func TestEncodeRCONPayload(t *testing.T) {
	payload, err := encodeRCONPayload("changeme", "varlist")
	require.NoError(t, err)

	want := append([]byte{8}, "changeme"...)
	want = append(want, 7)
	want = append(want, "varlist"...)
	assert.Equal(t, want, payload)
}
