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

// MatchService struct
type MatchService struct {
	Dynamo *DynamoService
}

// UpsertMatch writes the canonical match record for a mutual like. The put
// is conditional on the key not existing, so redelivered detections from
// either direction converge on the first write and keep its createdAt.
// Returns true when this call created the match.
func (s *MatchService) UpsertMatch(ctx context.Context, a, b string) (bool, error) {
	user1, user2 := a, b
	if user2 < user1 {
		user1, user2 = user2, user1
	}

	match := models.Match{
		MatchID:     models.MatchID(a, b),
		User1ID:     user1,
		User2ID:     user2,
		Users:       []string{user1, user2},
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
		LastMessage: nil,
	}

	created, err := s.Dynamo.PutItemIfAbsent(ctx, models.MatchesTable, "matchId", match)
	if err != nil {
		return false, fmt.Errorf("failed to create match: %w", err)
	}
	return created, nil
}

// GetMatchesByUserID fetches every match the user participates in. The pair
// is stored sorted, so the user can sit in either slot; each slot has its
// own GSI.
func (s *MatchService) GetMatchesByUserID(ctx context.Context, userID string) ([]models.Match, error) {
	var matches []models.Match

	expressionValues := map[string]types.AttributeValue{
		":userId": &types.AttributeValueMemberS{Value: userID},
	}

	user1Items, err := s.Dynamo.QueryItemsWithIndex(ctx, models.MatchesTable, models.User1Index,
		"user1Id = :userId", expressionValues, nil, 100)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch matches: %w", err)
	}

	user2Items, err := s.Dynamo.QueryItemsWithIndex(ctx, models.MatchesTable, models.User2Index,
		"user2Id = :userId", expressionValues, nil, 100)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch matches: %w", err)
	}

	for _, item := range append(user1Items, user2Items...) {
		var match models.Match
		if err := attributevalue.UnmarshalMap(item, &match); err != nil {
			log.Printf("Error unmarshalling match: %v", err)
			continue
		}
		matches = append(matches, match)
	}

	return matches, nil
}

// MatchKey builds the primary key for one match record.
func MatchKey(matchID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"matchId": &types.AttributeValueMemberS{Value: matchID},
	}
}
