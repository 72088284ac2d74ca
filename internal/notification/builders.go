// internal/notification/builders.go
package notification

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Builder is a pure mapping from a job payload to a notification record plus
// the rendered display message. The recipient is always derived from the
// owner/followed/user field of the payload, never from the acting user, so an
// actor is never notified about their own action.
type Builder func(jobID string, payload map[string]any) (Notification, string, error)

var builders = map[Type]Builder{}

// RegisterBuilder installs the builder for a job type. Adding a notification
// kind is one schema entry plus one registration.
func RegisterBuilder(t Type, b Builder) {
	builders[t] = b
}

// BuilderFor returns the builder for a raw job type string.
func BuilderFor(jobType string) (Builder, bool) {
	b, ok := builders[Type(jobType)]
	return b, ok
}

// RegisteredTypes returns the job types this consumer can handle.
func RegisteredTypes() []Type {
	out := make([]Type, 0, len(builders))
	for t := range builders {
		out = append(out, t)
	}
	return out
}

func init() {
	RegisterBuilder(TypeRecipeLiked, buildRecipeLiked)
	RegisterBuilder(TypeRecipeCommented, buildRecipeCommented)
	RegisterBuilder(TypeRecipeShared, buildRecipeShared)
	RegisterBuilder(TypeNewFollower, buildNewFollower)
	RegisterBuilder(TypePriceAlert, buildPriceAlert)
	RegisterBuilder(TypeRecipeFeatured, buildRecipeFeatured)
	RegisterBuilder(TypeCommentReply, buildCommentReply)
	RegisterBuilder(TypeAchievementUnlocked, buildAchievementUnlocked)
}

func newNotification(jobID string, t Type, recipientID string) Notification {
	return Notification{
		ID:          uuid.NewString(),
		JobID:       jobID,
		Type:        t,
		RecipientID: recipientID,
		CreatedAt:   time.Now().UTC(),
	}
}

func str(payload map[string]any, key string) string {
	s, _ := payload[key].(string)
	return s
}

// num returns the payload field as float64; JSON numbers always decode to it.
func num(payload map[string]any, key string) float64 {
	f, _ := payload[key].(float64)
	return f
}

// formatNumber renders 25.0 as "25" and 3.5 as "3.5".
func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func buildRecipeLiked(jobID string, payload map[string]any) (Notification, string, error) {
	if err := validatePayload(TypeRecipeLiked, payload); err != nil {
		return Notification{}, "", err
	}
	n := newNotification(jobID, TypeRecipeLiked, str(payload, "recipeOwnerId"))
	n.SenderID = str(payload, "likerId")
	n.RecipeID = str(payload, "recipeId")
	n.Metadata = map[string]any{
		"recipeName": payload["recipeName"],
		"likerName":  payload["likerName"],
	}
	msg := fmt.Sprintf("%s liked your recipe %q", str(payload, "likerName"), str(payload, "recipeName"))
	return n, msg, nil
}

func buildRecipeCommented(jobID string, payload map[string]any) (Notification, string, error) {
	if err := validatePayload(TypeRecipeCommented, payload); err != nil {
		return Notification{}, "", err
	}
	n := newNotification(jobID, TypeRecipeCommented, str(payload, "recipeOwnerId"))
	n.SenderID = str(payload, "commenterId")
	n.RecipeID = str(payload, "recipeId")
	n.CommentID = str(payload, "commentId")
	n.Metadata = map[string]any{
		"recipeName":    payload["recipeName"],
		"commenterName": payload["commenterName"],
		"comment":       payload["comment"],
	}
	msg := fmt.Sprintf("%s commented on %q", str(payload, "commenterName"), str(payload, "recipeName"))
	return n, msg, nil
}

func buildRecipeShared(jobID string, payload map[string]any) (Notification, string, error) {
	if err := validatePayload(TypeRecipeShared, payload); err != nil {
		return Notification{}, "", err
	}
	n := newNotification(jobID, TypeRecipeShared, str(payload, "recipeOwnerId"))
	n.SenderID = str(payload, "sharerId")
	n.RecipeID = str(payload, "recipeId")
	n.Metadata = map[string]any{
		"recipeName": payload["recipeName"],
		"sharerName": payload["sharerName"],
		"sharedWith": payload["sharedWith"],
	}
	msg := fmt.Sprintf("%s shared your recipe %q", str(payload, "sharerName"), str(payload, "recipeName"))
	return n, msg, nil
}

func buildNewFollower(jobID string, payload map[string]any) (Notification, string, error) {
	if err := validatePayload(TypeNewFollower, payload); err != nil {
		return Notification{}, "", err
	}
	n := newNotification(jobID, TypeNewFollower, str(payload, "followedId"))
	n.SenderID = str(payload, "followerId")
	n.Metadata = map[string]any{
		"followerName": payload["followerName"],
	}
	msg := fmt.Sprintf("%s started following you", str(payload, "followerName"))
	return n, msg, nil
}

func buildPriceAlert(jobID string, payload map[string]any) (Notification, string, error) {
	if err := validatePayload(TypePriceAlert, payload); err != nil {
		return Notification{}, "", err
	}
	// System-generated: no sender.
	n := newNotification(jobID, TypePriceAlert, str(payload, "userId"))
	n.Metadata = map[string]any{
		"ingredientName":   payload["ingredientName"],
		"oldPrice":         payload["oldPrice"],
		"newPrice":         payload["newPrice"],
		"store":            payload["store"],
		"percentageChange": payload["percentageChange"],
	}
	msg := fmt.Sprintf("Price alert for %s: %s%% change at %s",
		str(payload, "ingredientName"),
		formatNumber(num(payload, "percentageChange")),
		str(payload, "store"),
	)
	return n, msg, nil
}

func buildRecipeFeatured(jobID string, payload map[string]any) (Notification, string, error) {
	if err := validatePayload(TypeRecipeFeatured, payload); err != nil {
		return Notification{}, "", err
	}
	n := newNotification(jobID, TypeRecipeFeatured, str(payload, "recipeOwnerId"))
	n.RecipeID = str(payload, "recipeId")
	n.Metadata = map[string]any{
		"recipeName": payload["recipeName"],
		"category":   payload["category"],
	}
	msg := fmt.Sprintf("Your recipe %q was featured in %s!", str(payload, "recipeName"), str(payload, "category"))
	return n, msg, nil
}

func buildCommentReply(jobID string, payload map[string]any) (Notification, string, error) {
	if err := validatePayload(TypeCommentReply, payload); err != nil {
		return Notification{}, "", err
	}
	n := newNotification(jobID, TypeCommentReply, str(payload, "parentCommentUserId"))
	n.SenderID = str(payload, "replyUserId")
	n.RecipeID = str(payload, "recipeId")
	n.CommentID = str(payload, "commentId")
	n.Metadata = map[string]any{
		"recipeName":  payload["recipeName"],
		"replierName": payload["replierName"],
		"reply":       payload["reply"],
	}
	msg := fmt.Sprintf("%s replied to your comment on %q", str(payload, "replierName"), str(payload, "recipeName"))
	return n, msg, nil
}

func buildAchievementUnlocked(jobID string, payload map[string]any) (Notification, string, error) {
	if err := validatePayload(TypeAchievementUnlocked, payload); err != nil {
		return Notification{}, "", err
	}
	n := newNotification(jobID, TypeAchievementUnlocked, str(payload, "userId"))
	n.Metadata = map[string]any{
		"achievementName": payload["achievementName"],
		"description":     payload["description"],
		"reward":          payload["reward"],
	}
	msg := fmt.Sprintf("Achievement unlocked: %s!", str(payload, "achievementName"))
	return n, msg, nil
}
