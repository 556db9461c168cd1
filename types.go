package sampquery

// ServerInfo is the server's answer to an 'i' query. It is immutable once
// decoded from a single reply datagram.
//
// The *Encoding fields record the charset each text field was decoded from.
// They are diagnostic only and do not affect behavior.
type ServerInfo struct {
	Name       string
	Gamemode   string
	Language   string
	Password   bool
	Players    uint16
	MaxPlayers uint16

	NameEncoding     string
	GamemodeEncoding string
	LanguageEncoding string
}

// Player is a single entry of the roster returned by a 'c' query. Player
// names are 7-bit clean on the wire.
type Player struct {
	Name  string
	Score int32
}

// Rule is a single name/value pair of the rule set returned by an 'r' query.
// ValueEncoding records the charset the value was decoded from.
type Rule struct {
	Name          string
	Value         string
	ValueEncoding string
}
