package models

import "time"

// Identity is the authenticated principal for the current session. It is
// created by the auth provider on sign-in and destroyed on sign-out; the
// core only observes it.
type Identity struct {
	UID         string `json:"uid"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url"`
	Anonymous   bool   `json:"anonymous"`
}

// Presence status values.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// PresenceRecord is the coarse online/offline signal for a uid. At most one
// record exists per uid. "online" is asserted on session start; "offline" is
// written on explicit logout and best-effort on uncontrolled teardown.
type PresenceRecord struct {
	UID         string    `json:"uid" bson:"_id,omitempty" firestore:"-"`
	Status      string    `json:"status" bson:"status" firestore:"status"`
	LastChanged time.Time `json:"last_changed" bson:"last_changed" firestore:"last_changed,serverTimestamp"`
}
