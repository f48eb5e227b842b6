package gravatar

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"
)

// DefaultSize is the avatar edge length in pixels used for profiles.
const DefaultSize = 256

const baseURL = "https://www.gravatar.com/avatar/"

// URL returns the Gravatar image for email, falling back to an identicon for
// addresses with no Gravatar. An empty email yields "".
func URL(email string, size int) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ""
	}
	if size <= 0 {
		size = DefaultSize
	}
	sum := md5.Sum([]byte(email))
	q := url.Values{
		"d": {"identicon"},
		"s": {strconv.Itoa(size)},
	}
	return baseURL + hex.EncodeToString(sum[:]) + "?" + q.Encode()
}
