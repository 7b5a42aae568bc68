package positions

import (
	"regexp"
	"strings"

	"github.com/samber/lo"

	"github.com/mtlprog/positions/internal/domain"
)

// UnknownProtocol is the canonical id used when a position carries no protocol name.
const UnknownProtocol = "unknown"

var versionToken = regexp.MustCompile(`^v\d+$`)

// Classify derives the canonical protocol identity of a raw position. Version suffixes are
// stripped, so "Uniswap V2" and "uniswap-v3" both map to "uniswap".
func (r *Registry) Classify(raw domain.RawPosition) string {
	name := raw.CanonicalProtocolName
	if strings.TrimSpace(name) == "" {
		name = raw.ProtocolName
	}

	id := normalizeProtocolKey(name)
	if alias, ok := r.aliases[id]; ok {
		id = alias
	}
	if id == "" {
		return UnknownProtocol
	}
	return id
}

// Version returns the protocol version of a raw position, taken from the explicit version
// field or else from a trailing version token in its protocol name.
func Version(raw domain.RawPosition) string {
	if v := strings.ToLower(strings.TrimSpace(raw.ProtocolVersion)); v != "" {
		return v
	}
	for _, name := range []string{raw.ProtocolName, raw.CanonicalProtocolName} {
		if v := lo.LastOrEmpty(protocolTokens(name)); versionToken.MatchString(v) {
			return v
		}
	}
	return ""
}

func normalizeProtocolKey(name string) string {
	tokens := lo.DropRightWhile(protocolTokens(name), versionToken.MatchString)
	return strings.Join(tokens, "-")
}

func protocolTokens(name string) []string {
	return strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		switch r {
		case ' ', '-', '_', '(', ')', '\t':
			return true
		}
		return false
	})
}
