package models

import "time"

// Post is one feed item in the "posts" collection. The profile flow only reads
// posts; they are written by the compose flow of the web client.
type Post struct {
	UserID      string    `json:"userId" firestore:"userId" bson:"userId" yaml:"userId"`
	Avatar      string    `json:"avatar" firestore:"avatar" bson:"avatar" yaml:"avatar"`
	DisplayName string    `json:"displayName" firestore:"displayName" bson:"displayName" yaml:"displayName"`
	Username    string    `json:"username" firestore:"username" bson:"username" yaml:"username"`
	Image       string    `json:"image" firestore:"image" bson:"image" yaml:"image"`
	Text        string    `json:"text" firestore:"text" bson:"text" yaml:"text"`
	Verified    bool      `json:"verified" firestore:"verified" bson:"verified" yaml:"verified"`
	CreatedOn   time.Time `json:"createdOn" firestore:"createdOn" bson:"createdOn" yaml:"createdOn"`
}
