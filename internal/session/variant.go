package session

// Variant identifies the kind of client behind a session.
type Variant uint8

const (
	// Stable is the classic game client and the only one speaking the binary protocol.
	Stable Variant = iota
	Lazer
	Web
	IRC
	ApiBot
)

var variantNames = [...]string{"stable", "lazer", "web", "irc", "api_bot"}

func (v Variant) String() string {
	if int(v) < len(variantNames) {
		return variantNames[v]
	}
	return "unknown"
}

// UsesJWT reports whether sessions of this variant authenticate with signed
// tokens rather than token strings.
func (v Variant) UsesJWT() bool {
	return v != Stable
}
