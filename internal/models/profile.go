package models

// Profile is the user document stored in the "users" collection and keyed by
// the auth provider's uid. Field names match the documents written by the web
// client, so every backend uses the same camelCase keys.
type Profile struct {
	FullName string `json:"fullName" firestore:"fullName" bson:"fullName" yaml:"fullName"`
	Username string `json:"username" firestore:"username" bson:"username" yaml:"username" validate:"required"`
	Email    string `json:"email" firestore:"email" bson:"email" yaml:"email" validate:"required"`
	Contact  string `json:"contact" firestore:"contact" bson:"contact" yaml:"contact" validate:"required"`
	Avatar   string `json:"avatar" firestore:"avatar" bson:"avatar" yaml:"avatar"`
	Status   string `json:"status" firestore:"status" bson:"status" yaml:"status"`
	// Verified is set by an administrator and is never changed by the editor.
	Verified bool `json:"verified" firestore:"verified" bson:"verified" yaml:"verified"`
}

// PublicProfile is safe to share with other authenticated users (no email or contact).
type PublicProfile struct {
	UserID   string `json:"userId"`
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
	Status   string `json:"status"`
	Verified bool   `json:"verified"`
}

func (p Profile) Public(userID string) PublicProfile {
	return PublicProfile{
		UserID:   userID,
		FullName: p.FullName,
		Username: p.Username,
		Avatar:   p.Avatar,
		Status:   p.Status,
		Verified: p.Verified,
	}
}

// Handle renders the username the way the profile header shows it.
func (p Profile) Handle() string {
	if p.Username == "" {
		return ""
	}
	return "@" + p.Username
}

// ProfileView is what the profile page renders: the profile, the user's posts,
// and the empty-state placeholder when there are no posts.
type ProfileView struct {
	UserID          string  `json:"userId"`
	Profile         Profile `json:"profile"`
	Posts           []Post  `json:"posts,omitempty"`
	EmptyState      bool    `json:"emptyState"`
	EmptyStateImage string  `json:"emptyStateImage,omitempty"`
}
