package models

// Group is a community container owning channels and a member set.
// The owner is always present in Members; membership only grows (there is
// no leave flow). Groups are never deleted.
type Group struct {
	ID      string   `json:"id" bson:"_id,omitempty" firestore:"id"`
	Name    string   `json:"name" bson:"name" firestore:"name"`
	OwnerID string   `json:"owner_id" bson:"owner_id" firestore:"ownerId"`
	Private bool     `json:"is_private" bson:"is_private" firestore:"isPrivate"`
	IconURL string   `json:"icon_url" bson:"icon_url" firestore:"iconUrl"`
	Members []string `json:"members" bson:"members" firestore:"members"`

	// PasswordHash is set for private groups at creation time. The join
	// path does not check it; the field is currently inert.
	PasswordHash string `json:"-" bson:"password_hash,omitempty" firestore:"passwordHash,omitempty"`
}

// HasMember reports whether uid is in the group's member set.
func (g *Group) HasMember(uid string) bool {
	for _, m := range g.Members {
		if m == uid {
			return true
		}
	}
	return false
}

// Channel is an ordered message stream scoped to one group.
type Channel struct {
	ID   string `json:"id" bson:"_id,omitempty" firestore:"id"`
	Name string `json:"name" bson:"name" firestore:"name"`
}

// DefaultChannelName is created alongside every new group.
const DefaultChannelName = "general"
