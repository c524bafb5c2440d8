package services

import (
	"context"
	"fmt"
	"log"
	"sort"

	"dateblue_server/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// UserProfileService owns the user documents, including the receivedLikes
// mirror embedded on them.
type UserProfileService struct {
	Dynamo *DynamoService
}

func profileKey(userID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"userId": &types.AttributeValueMemberS{Value: userID},
	}
}

// CreateProfile stores a profile. The receivedLikes map is always written,
// even when empty, so later per-key mirror updates have a map to land in.
func (s *UserProfileService) CreateProfile(ctx context.Context, profile models.UserProfile) error {
	if profile.ReceivedLikes == nil {
		profile.ReceivedLikes = map[string]models.ReceivedLike{}
	}
	if err := s.Dynamo.PutItem(ctx, models.UserProfilesTable, profile); err != nil {
		return err
	}
	log.Printf("Profile saved: %s", profile.UserID)
	return nil
}

// GetProfile fetches a profile. Returns (nil, nil) when the user does not
// exist; a deleted account is an expected condition for every caller.
func (s *UserProfileService) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	item, err := s.Dynamo.GetItem(ctx, models.UserProfilesTable, profileKey(userID))
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil
	}

	var profile models.UserProfile
	if err := attributevalue.UnmarshalMap(item, &profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile '%s': %w", userID, err)
	}
	return &profile, nil
}

// SavePushSubscription stores the user's push delivery address.
func (s *UserProfileService) SavePushSubscription(ctx context.Context, userID, subscription string) error {
	err := s.Dynamo.UpdateItem(ctx, models.UserProfilesTable, profileKey(userID),
		"SET pushSubscription = :sub", "attribute_exists(userId)",
		map[string]types.AttributeValue{
			":sub": &types.AttributeValueMemberS{Value: subscription},
		}, nil)
	if err != nil {
		if IsConditionalCheckFailed(err) {
			return fmt.Errorf("no profile for user '%s'", userID)
		}
		return err
	}
	return nil
}

// ClearPushSubscription drops a subscription the push service reported as
// gone. Clearing an already-cleared or deleted profile is a no-op.
func (s *UserProfileService) ClearPushSubscription(ctx context.Context, userID string) error {
	err := s.Dynamo.UpdateItem(ctx, models.UserProfilesTable, profileKey(userID),
		"REMOVE pushSubscription", "attribute_exists(userId)", nil, nil)
	if err != nil && !IsConditionalCheckFailed(err) {
		return err
	}
	return nil
}

// AddReceivedLike merges one entry into the target's receivedLikes mirror.
// The per-key SET is additive: entries from other users are untouched, and a
// redelivered like overwrites its own key instead of duplicating. Returns
// false without error when the target profile no longer exists; callers must
// not keep acting on the deleted identity.
func (s *UserProfileService) AddReceivedLike(ctx context.Context, targetID, fromUserID, likedAt string) (bool, error) {
	entry, err := attributevalue.Marshal(models.ReceivedLike{
		FromUserID: fromUserID,
		LikedAt:    likedAt,
	})
	if err != nil {
		return false, fmt.Errorf("failed to marshal receivedLikes entry: %w", err)
	}

	err = s.Dynamo.UpdateItem(ctx, models.UserProfilesTable, profileKey(targetID),
		"SET receivedLikes.#from = :entry", "attribute_exists(userId)",
		map[string]types.AttributeValue{":entry": entry},
		map[string]string{"#from": fromUserID})
	if err != nil {
		if IsConditionalCheckFailed(err) {
			log.Printf("Profile %s is gone, skipping receivedLikes append", targetID)
			return false, nil
		}
		return false, err
	}
	log.Printf("Added %s to receivedLikes of %s", fromUserID, targetID)
	return true, nil
}

// RemoveReceivedLike retracts a single mirror entry. Removing an entry that
// is not there, or from a profile that is gone, is a no-op; retraction stays
// safe under redelivery and arbitrary interleaving.
func (s *UserProfileService) RemoveReceivedLike(ctx context.Context, userID, fromUserID string) error {
	err := s.Dynamo.UpdateItem(ctx, models.UserProfilesTable, profileKey(userID),
		"REMOVE receivedLikes.#from", "attribute_exists(userId)",
		nil, map[string]string{"#from": fromUserID})
	if err != nil {
		if IsConditionalCheckFailed(err) {
			return nil
		}
		return err
	}
	return nil
}

// ListReceivedLikes returns the mirror entries ordered by like time.
func (s *UserProfileService) ListReceivedLikes(ctx context.Context, userID string) ([]models.ReceivedLike, error) {
	profile, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, nil
	}

	likes := make([]models.ReceivedLike, 0, len(profile.ReceivedLikes))
	for _, like := range profile.ReceivedLikes {
		likes = append(likes, like)
	}
	sort.Slice(likes, func(i, j int) bool {
		if likes[i].LikedAt != likes[j].LikedAt {
			return likes[i].LikedAt < likes[j].LikedAt
		}
		return likes[i].FromUserID < likes[j].FromUserID
	})
	return likes, nil
}

// DeleteProfile removes the user document. This is the event that triggers
// the deletion cascade; the cascade itself runs as its own unit of work.
func (s *UserProfileService) DeleteProfile(ctx context.Context, userID string) error {
	if err := s.Dynamo.DeleteItem(ctx, models.UserProfilesTable, profileKey(userID)); err != nil {
		return err
	}
	log.Printf("Profile deleted: %s", userID)
	return nil
}
