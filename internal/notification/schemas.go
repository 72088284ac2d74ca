// internal/notification/schemas.go
package notification

import (
	"fmt"
	"strings"

	apperrors "recipehub-notifier/internal/common/errors"

	"github.com/xeipuuv/gojsonschema"
)

// payloadSchemas holds one JSON schema per job type. Validation runs before a
// builder constructs anything, so a malformed payload never reaches the store.
var payloadSchemas = map[Type]map[string]any{
	TypeRecipeLiked: objectSchema(
		[]string{"recipeOwnerId", "likerId", "recipeId", "recipeName", "likerName"},
		nil,
	),
	TypeRecipeCommented: objectSchema(
		[]string{"recipeOwnerId", "commenterId", "recipeId", "commentId", "recipeName", "commenterName", "comment"},
		nil,
	),
	TypeRecipeShared: objectSchema(
		[]string{"recipeOwnerId", "sharerId", "recipeId", "recipeName", "sharerName", "sharedWith"},
		nil,
	),
	TypeNewFollower: objectSchema(
		[]string{"followedId", "followerId", "followerName"},
		nil,
	),
	TypePriceAlert: objectSchema(
		[]string{"userId", "ingredientName", "oldPrice", "newPrice", "store", "percentageChange"},
		map[string]string{"oldPrice": "number", "newPrice": "number", "percentageChange": "number"},
	),
	TypeRecipeFeatured: objectSchema(
		[]string{"recipeOwnerId", "recipeId", "recipeName", "category"},
		nil,
	),
	TypeCommentReply: objectSchema(
		[]string{"parentCommentUserId", "replyUserId", "recipeId", "commentId", "recipeName", "replierName", "reply"},
		nil,
	),
	TypeAchievementUnlocked: objectSchema(
		[]string{"userId", "achievementName", "description", "reward"},
		nil,
	),
}

// objectSchema builds a schema document requiring the given fields. Fields
// default to string; overrides name a different JSON type.
func objectSchema(required []string, typeOverrides map[string]string) map[string]any {
	props := map[string]any{}
	for _, f := range required {
		t := "string"
		if override, ok := typeOverrides[f]; ok {
			t = override
		}
		props[f] = map[string]any{"type": t}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// validatePayload checks the payload against the type's schema and returns a
// non-retryable validation error on mismatch.
func validatePayload(jobType Type, payload map[string]any) error {
	schema, ok := payloadSchemas[jobType]
	if !ok {
		return apperrors.NewUnknownJobTypeError(string(jobType))
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	documentLoader := gojsonschema.NewGoLoader(payload)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return apperrors.NewValidationError(string(jobType), fmt.Sprintf("validation error: %v", err))
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return apperrors.NewValidationError(string(jobType), strings.Join(errs, "; "))
	}

	return nil
}
