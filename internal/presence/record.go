// Package presence maintains the live roster of editors connected to a
// document: who they are, where their cursor is and whether they are idle.
package presence

import (
	"fmt"
	"hash/fnv"
)

// DeviceClass mirrors the responsive breakpoint an editor reports.
type DeviceClass string

// Known device classes.
const (
	DeviceXS DeviceClass = "xs"
	DeviceSM DeviceClass = "sm"
	DeviceMD DeviceClass = "md"
	DeviceLG DeviceClass = "lg"
)

// Record describes one connected editor. A logged-in user editing from
// several tabs has one Record per connection; Roster deduplicates them by
// user id.
type Record struct {
	ConnID   string      `json:"id"`
	UserID   string      `json:"userId,omitempty"`
	Name     string      `json:"name"`
	Color    string      `json:"color"`
	Cursor   *int        `json:"cursor"` // rune offset; nil while blurred
	Idle     bool        `json:"idle"`
	LoggedIn bool        `json:"login"`
	Device   DeviceClass `json:"type,omitempty"`
}

// palette holds the colors handed to connections that do not bring their
// own.
var palette = []string{
	"#e6194b", "#3cb44b", "#ffe119", "#4363d8", "#f58231",
	"#911eb4", "#46f0f0", "#f032e6", "#bcf60c", "#fabebe",
	"#008080", "#e6beff", "#9a6324", "#800000", "#aaffc3",
	"#808000", "#ffd8b1", "#000075", "#808080",
}

// ColorFor returns a stable palette color for a connection id, so the same
// connection keeps its color across roster rebuilds.
func ColorFor(connID string) string {
	h := fnv.New32a()
	fmt.Fprint(h, connID)

	return palette[h.Sum32()%uint32(len(palette))]
}
