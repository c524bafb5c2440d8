package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"dateblue_server/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// InteractionService records directional like/pass decisions and runs match
// detection for newly created interactions.
type InteractionService struct {
	Dynamo   *DynamoService
	Profiles *UserProfileService
	Matches  *MatchService
	Notifier *NotificationService
}

func interactionKey(senderID, receiverID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: models.InteractionPK(senderID)},
		"SK": &types.AttributeValueMemberS{Value: models.InteractionSK(receiverID)},
	}
}

// RecordInteraction writes the directional record for sender -> receiver.
// Interactions are immutable and keyed by the ordered pair: the write is
// conditional on the pair not existing yet, so a replayed create returns the
// stored record instead of duplicating or overwriting it.
func (s *InteractionService) RecordInteraction(ctx context.Context, senderID, receiverID, action string) (*models.Interaction, bool, error) {
	interaction := models.Interaction{
		PK:         models.InteractionPK(senderID),
		SK:         models.InteractionSK(receiverID),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Action:     action,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}

	created, err := s.Dynamo.PutItemIfAbsent(ctx, models.InteractionsTable, "PK", interaction)
	if err != nil {
		return nil, false, err
	}
	if !created {
		log.Printf("Interaction %s -> %s already recorded", senderID, receiverID)
		existing, err := s.GetInteraction(ctx, senderID, receiverID)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			return existing, false, nil
		}
		return &interaction, false, nil
	}

	log.Printf("Interaction saved: %s -> %s (%s)", senderID, receiverID, action)
	return &interaction, true, nil
}

// GetInteraction retrieves the interaction between two users, nil when none
// has been recorded.
func (s *InteractionService) GetInteraction(ctx context.Context, senderID, receiverID string) (*models.Interaction, error) {
	item, err := s.Dynamo.GetItem(ctx, models.InteractionsTable, interactionKey(senderID, receiverID))
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil
	}

	var interaction models.Interaction
	if err := attributevalue.UnmarshalMap(item, &interaction); err != nil {
		return nil, fmt.Errorf("failed to unmarshal interaction: %w", err)
	}
	return &interaction, nil
}

// GetUserInteractions fetches the user's own interaction ledger.
func (s *InteractionService) GetUserInteractions(ctx context.Context, userID string) ([]models.Interaction, error) {
	keyCondition := "PK = :user"
	expressionValues := map[string]types.AttributeValue{
		":user": &types.AttributeValueMemberS{Value: models.InteractionPK(userID)},
	}

	items, err := s.Dynamo.QueryItems(ctx, models.InteractionsTable, keyCondition, expressionValues, nil, 100)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch interactions: %w", err)
	}

	var interactions []models.Interaction
	if err := attributevalue.UnmarshalListOfMaps(items, &interactions); err != nil {
		return nil, fmt.Errorf("failed to process interactions: %w", err)
	}
	return interactions, nil
}

// ProcessInteractionCreated is the trigger body for a newly created
// interaction. The event system delivers at least once and has no dead
// letter queue, so every step here is idempotent and every failure is
// logged and swallowed: a redelivery, or the reciprocal interaction's own
// trigger, finishes whatever this pass left half done.
func (s *InteractionService) ProcessInteractionCreated(ctx context.Context, interaction *models.Interaction) {
	if interaction.Action != models.ActionLike {
		log.Printf("Interaction %s -> %s is a pass, skipping", interaction.SenderID, interaction.ReceiverID)
		return
	}

	targetExists, err := s.Profiles.AddReceivedLike(ctx, interaction.ReceiverID, interaction.SenderID, interaction.CreatedAt)
	if err != nil {
		log.Printf("Error updating receivedLikes for %s: %v", interaction.ReceiverID, err)
		return
	}
	if !targetExists {
		// The receiver's account is deleted. Stop before match detection:
		// their not-yet-cleaned reciprocal like must not mint a match that
		// references the deleted identity.
		return
	}

	reciprocal, err := s.GetInteraction(ctx, interaction.ReceiverID, interaction.SenderID)
	if err != nil {
		log.Printf("Error checking reciprocal interaction %s -> %s: %v", interaction.ReceiverID, interaction.SenderID, err)
		return
	}

	if reciprocal == nil || reciprocal.Action != models.ActionLike {
		s.Notifier.SendLikeReceived(ctx, interaction.ReceiverID, interaction.SenderID)
		return
	}

	// Mutual like: promote to a match under the canonical key.
	created, err := s.Matches.UpsertMatch(ctx, interaction.SenderID, interaction.ReceiverID)
	if err != nil {
		log.Printf("Error creating match for %s and %s: %v", interaction.SenderID, interaction.ReceiverID, err)
		return
	}
	if created {
		log.Printf("Match created: %s", models.MatchID(interaction.SenderID, interaction.ReceiverID))
	}

	// The match retracts the mirror entry on both sides.
	if err := s.Profiles.RemoveReceivedLike(ctx, interaction.SenderID, interaction.ReceiverID); err != nil {
		log.Printf("Error removing %s from receivedLikes of %s: %v", interaction.ReceiverID, interaction.SenderID, err)
	}
	if err := s.Profiles.RemoveReceivedLike(ctx, interaction.ReceiverID, interaction.SenderID); err != nil {
		log.Printf("Error removing %s from receivedLikes of %s: %v", interaction.SenderID, interaction.ReceiverID, err)
	}

	// A transition that completed as a match never also sends a like push.
	s.Notifier.SendMatchNotifications(ctx, interaction.SenderID, interaction.ReceiverID)
}
