// Package cursor encodes paging and query state into bounded opaque tokens.
//
// No session table exists between interactions: the entire cursor and query
// shape a control needs must ride inside the control's identifier string. The
// carrying channel is transport-constrained (100 characters, restricted
// charset), so parameters that are not plain decimal numbers are base64url
// escaped, and Decode rejects malformed tokens outright instead of guessing.
package cursor

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
)

// MaxTokenLen is the platform ceiling for a control identifier.
const MaxTokenLen = 100

const (
	version   = "v1"
	sep       = ":"
	escPrefix = "~"
)

var (
	// ErrInvalidToken means the token failed structural validation. Callers
	// service the interaction as a silent no-op.
	ErrInvalidToken = errors.New("cursor: invalid token")

	// ErrTokenTooLong means the encoded state does not fit the identifier
	// ceiling. Encode never truncates.
	ErrTokenTooLong = errors.New("cursor: token exceeds identifier limit")
)

// Encode serializes a page number and an ordered parameter list into a token.
// Decode(Encode(p, xs...)) == (p, xs) for every legal input.
func Encode(page int, params ...string) (string, error) {
	if page < 1 {
		return "", ErrInvalidToken
	}

	var b strings.Builder
	b.WriteString(version)
	b.WriteString(sep)
	b.WriteString(strconv.Itoa(page))

	for _, p := range params {
		b.WriteString(sep)
		if isPlainNumber(p) {
			b.WriteString(p)
		} else {
			b.WriteString(escPrefix)
			b.WriteString(base64.RawURLEncoding.EncodeToString([]byte(p)))
		}
	}

	if b.Len() > MaxTokenLen {
		return "", ErrTokenTooLong
	}
	return b.String(), nil
}

// Decode parses a token produced by Encode.
func Decode(token string) (page int, params []string, err error) {
	if token == "" || len(token) > MaxTokenLen {
		return 0, nil, ErrInvalidToken
	}

	parts := strings.Split(token, sep)
	if len(parts) < 2 || parts[0] != version {
		return 0, nil, ErrInvalidToken
	}

	page, err = strconv.Atoi(parts[1])
	if err != nil || page < 1 || strconv.Itoa(page) != parts[1] {
		return 0, nil, ErrInvalidToken
	}

	params = make([]string, 0, len(parts)-2)
	for _, raw := range parts[2:] {
		switch {
		case strings.HasPrefix(raw, escPrefix):
			dec, derr := base64.RawURLEncoding.DecodeString(raw[len(escPrefix):])
			if derr != nil {
				return 0, nil, ErrInvalidToken
			}
			params = append(params, string(dec))
		case isPlainNumber(raw):
			params = append(params, raw)
		default:
			return 0, nil, ErrInvalidToken
		}
	}
	return page, params, nil
}

// isPlainNumber reports whether s is a non-empty decimal digit string, the
// only parameter form that rides unescaped.
func isPlainNumber(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
