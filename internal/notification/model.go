// internal/notification/model.go
package notification

import "time"

// Type identifies the event kind behind a notification. The set is closed:
// a job whose type is not registered here fails dispatch.
type Type string

const (
	TypeRecipeLiked         Type = "recipe-liked"
	TypeRecipeCommented     Type = "recipe-commented"
	TypeRecipeShared        Type = "recipe-shared"
	TypeNewFollower         Type = "new-follower"
	TypePriceAlert          Type = "price-alert"
	TypeRecipeFeatured      Type = "recipe-featured"
	TypeCommentReply        Type = "comment-reply"
	TypeAchievementUnlocked Type = "achievement-unlocked"
)

// Notification is the persisted, user-facing record. Created exactly once by a
// builder, written once by the store, never updated by this pipeline (the read
// flag is owned by the read-receipt endpoint).
type Notification struct {
	ID string `bson:"_id" json:"id"`
	// JobID is the queue entry id. The store upserts on it so queue
	// redelivery cannot create duplicates.
	JobID       string         `bson:"jobId" json:"jobId"`
	Type        Type           `bson:"type" json:"type"`
	RecipientID string         `bson:"recipientId" json:"recipientId"`
	SenderID    string         `bson:"senderId,omitempty" json:"senderId,omitempty"`
	RecipeID    string         `bson:"recipeId,omitempty" json:"recipeId,omitempty"`
	CommentID   string         `bson:"commentId,omitempty" json:"commentId,omitempty"`
	Read        bool           `bson:"read" json:"read"`
	Metadata    map[string]any `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt   time.Time      `bson:"createdAt" json:"createdAt"`
}

// FailureEntry records one dispatch failure with the original payload for
// audit and manual replay. Append-only.
type FailureEntry struct {
	JobType   string         `bson:"jobType" json:"jobType"`
	Payload   map[string]any `bson:"payload,omitempty" json:"payload,omitempty"`
	Error     string         `bson:"error" json:"error"`
	Timestamp time.Time      `bson:"timestamp" json:"timestamp"`
}

// Envelope is the wire message pushed to live connections.
type Envelope struct {
	Type    Type         `json:"type"`
	Message string       `json:"message"`
	Data    Notification `json:"data"`
}
