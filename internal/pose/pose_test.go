// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package pose

import (
	"encoding/json"
	"testing"

	"github.com/wneessen/stepnav/internal/geometry"
)

func TestLandmarkKey(t *testing.T) {
	key := LandmarkKey("sign-1")
	if key != "landmark/sign-1" {
		t.Errorf("expected key to be %q, got %q", "landmark/sign-1", key)
	}
	id, ok := LandmarkID(key)
	if !ok {
		t.Fatal("expected key to be a landmark key")
	}
	if id != "sign-1" {
		t.Errorf("expected id to be %q, got %q", "sign-1", id)
	}
}

func TestLandmarkID(t *testing.T) {
	tests := []struct {
		name string
		key  string
		ok   bool
	}{
		{"camera key", CameraKey, false},
		{"empty id", LandmarkPrefix, false},
		{"nested id", "landmark/a/b", true},
		{"other prefix", "landmarks/a", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := LandmarkID(tc.key)
			if ok != tc.ok {
				t.Errorf("expected ok to be %t, got %t", tc.ok, ok)
			}
		})
	}
}

func TestSample_JSON(t *testing.T) {
	sample := Sample{Pose: geometry.FromTranslation(1, 2, 3), Timestamp: 12.5, SessionID: "s1"}
	data, err := json.Marshal(sample)
	if err != nil {
		t.Fatalf("failed to encode sample: %s", err)
	}
	var decoded Sample
	if err = json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to decode sample: %s", err)
	}
	if !decoded.Pose.ApproxEqual(sample.Pose, 1e-9) {
		t.Errorf("expected pose %s, got %s", sample.Pose, decoded.Pose)
	}
	if decoded.Timestamp != 12.5 || decoded.SessionID != "s1" {
		t.Errorf("unexpected sample metadata: %+v", decoded)
	}
}
