package feed

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Identity computes the stable identity hash for an entry. A non-empty
// source guid wins, so feeds that republish under the same guid map back to
// the already-stored entry. Without a guid the hash covers normalized
// title, link and published time. Uniqueness is enforced per feed, so two
// feeds mirroring the same content keep independent read state.
func Identity(entry Entry) string {
	if guid := canonical(entry.GUID); guid != "" {
		return digest("guid|" + guid)
	}

	published := ""
	if entry.PublishedAt != nil {
		published = entry.PublishedAt.UTC().Format(time.RFC3339)
	}

	return digest(fmt.Sprintf("content|%s|%s|%s",
		canonical(entry.Title), canonical(entry.Link), published))
}

// canonical trims whitespace and applies NFC so byte-level encoding
// differences between fetches do not change the identity.
func canonical(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func digest(s string) string {
	hash := sha256.Sum256([]byte(s))
	return hex.EncodeToString(hash[:])
}
