package models

// UserProfile defines the structure for user profiles.
//
// receivedLikes is the denormalized "who likes me" mirror. It is kept as a
// map keyed by the liker's id so two users liking the same profile at the
// same time never overwrite each other's entry, and a redelivered like lands
// on the same key instead of duplicating.
type UserProfile struct {
	UserID           string                  `dynamodbav:"userId" json:"userId"`
	FullName         string                  `dynamodbav:"fullName,omitempty" json:"fullName,omitempty"`
	EmailID          string                  `dynamodbav:"emailId,omitempty" json:"emailId,omitempty"`
	Photos           []string                `dynamodbav:"photos,omitempty" json:"photos,omitempty"`
	BlurredPhotoURLs map[string]string       `dynamodbav:"blurredPhotoUrls,omitempty" json:"blurredPhotoUrls,omitempty"`
	PushSubscription string                  `dynamodbav:"pushSubscription,omitempty" json:"pushSubscription,omitempty"`
	ReceivedLikes    map[string]ReceivedLike `dynamodbav:"receivedLikes" json:"receivedLikes"`
}

// ReceivedLike is a single entry in the receivedLikes mirror.
type ReceivedLike struct {
	FromUserID string `dynamodbav:"fromUserId" json:"fromUserId"`
	LikedAt    string `dynamodbav:"likedAt" json:"likedAt"`
}

// FirstBlurredPhoto resolves the obfuscated preview of the user's primary
// photo. Returns "" when the user has no photos or the blurred variant has
// not been generated yet.
func (p *UserProfile) FirstBlurredPhoto() string {
	if p == nil || len(p.Photos) == 0 {
		return ""
	}
	return p.BlurredPhotoURLs[p.Photos[0]]
}

// UserProfilesTable is the DynamoDB table name for user profiles
const UserProfilesTable = "UserProfiles"
