package protocol

import (
	"fmt"
	"net/url"
)

// BuildURL derives the socket URL from the page base URL. The socket scheme
// follows the page scheme: https gives wss, http gives ws. A non-empty
// session is passed as the session query parameter.
func BuildURL(base, path, session string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported scheme %q in %q", u.Scheme, base)
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host in %q", base)
	}
	u.Path = path
	u.RawQuery = ""
	u.Fragment = ""
	if session != "" {
		u.RawQuery = url.Values{"session": {session}}.Encode()
	}
	return u.String(), nil
}
