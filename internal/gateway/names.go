package gateway

import (
	"strings"

	"github.com/park285/omok-server/internal/msgcat"
)

// guestName derives a display name from the session id.
func guestName(cat *msgcat.Catalog, id string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(id, "-", ""))
	if len(suffix) > 4 {
		suffix = suffix[:4]
	}
	return cat.Text("guest.name", map[string]any{"Suffix": suffix}, "Guest-"+suffix)
}
