// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import "github.com/vorlif/spreak/localize"

const (
	clockAhead  localize.MsgID = "Straight ahead"
	clockBehind localize.MsgID = "Behind you"
	clockAt     localize.MsgID = "At %d o'clock"
)

// clockArrows maps clock directions to arrows.
var clockArrows = map[int]string{
	12: "↑",
	1:  "↗",
	2:  "↗",
	3:  "→",
	4:  "↘",
	5:  "↘",
	6:  "↓",
	7:  "↙",
	8:  "↙",
	9:  "←",
	10: "↖",
	11: "↖",
}

var i18nVars = map[string]localize.MsgID{
	"destination":      "Destination",
	"next":             "Next keypoint",
	"remaining":        "Remaining",
	"updated":          "Updated",
	"route":            "Route",
	"state":            "State",
	"nearby":           "Nearby",
	"waiting":          "Waiting for position",
	"direction":        "Following route",
	"keypoint_reached": "Keypoint reached",
	"arrived":          "You have arrived",
	"not_aligned":      "Looking for landmarks",
	"no_route":         "No route selected",
	"close_to_target":  "Keypoint is close",
	"upstairs":         "Upstairs",
	"downstairs":       "Downstairs",
}
