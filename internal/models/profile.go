package models

// Profile is user-chosen display metadata keyed by the auth uid. It is
// created once during onboarding; its existence is what marks onboarding
// as complete for an identity.
type Profile struct {
	UID         string `json:"uid" bson:"_id,omitempty" firestore:"uid"`
	DisplayName string `json:"display_name" bson:"display_name" firestore:"displayName"`
	Bio         string `json:"bio" bson:"bio,omitempty" firestore:"bio"`
	PhotoURL    string `json:"photo_url" bson:"photo_url,omitempty" firestore:"photoURL"`
}

type UpsertProfileRequest struct {
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio"`
	PhotoURL    string `json:"photo_url"`
}
