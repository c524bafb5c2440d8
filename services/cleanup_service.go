package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"dateblue_server/models"
	"dateblue_server/utils"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-co-op/gocron/v2"
)

const (
	// cleanupPageSize is how many profiles one population-sweep page holds.
	cleanupPageSize = 100
	// maxCleanupBatchOps is the hard platform ceiling on writes grouped
	// into one flush; it must never be exceeded.
	maxCleanupBatchOps = 400
)

// CleanupService removes every trace of a deleted account: mirror entries on
// every other profile, matches, the account's own interaction ledger,
// interactions targeting it from other ledgers, and its storage namespace.
// Each stage is idempotent and the whole cascade is checkpointed, so an
// interrupted run resumes where it stopped instead of violating anything.
type CleanupService struct {
	Dynamo   *DynamoService
	Profiles *UserProfileService
	Matches  *MatchService
	Storage  *S3Service
}

func cleanupJobKey(userID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"userId": &types.AttributeValueMemberS{Value: userID},
	}
}

func profileCursorKey(cursor string) map[string]types.AttributeValue {
	if cursor == "" {
		return nil
	}
	return map[string]types.AttributeValue{
		"userId": &types.AttributeValueMemberS{Value: cursor},
	}
}

// batchFlusher groups write requests and flushes whenever the platform
// ceiling fills. Callers flush once more at the end of each page so no
// partially-filled batch is left behind.
type batchFlusher struct {
	dynamo  *DynamoService
	table   string
	pending []types.WriteRequest
}

func newBatchFlusher(dynamo *DynamoService, table string) *batchFlusher {
	return &batchFlusher{dynamo: dynamo, table: table}
}

func (b *batchFlusher) add(ctx context.Context, request types.WriteRequest) error {
	b.pending = append(b.pending, request)
	if len(b.pending) >= maxCleanupBatchOps {
		return b.flush(ctx)
	}
	return nil
}

func (b *batchFlusher) addDelete(ctx context.Context, key map[string]types.AttributeValue) error {
	return b.add(ctx, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: key}})
}

func (b *batchFlusher) flush(ctx context.Context) error {
	if len(b.pending) == 0 {
		return nil
	}
	if err := b.dynamo.BatchWriteItems(ctx, b.table, b.pending); err != nil {
		return err
	}
	b.pending = b.pending[:0]
	return nil
}

// EnqueueCleanup persists a fresh checkpoint for a deleted account. The
// record's existence marks the cascade as pending; completion deletes it.
func (s *CleanupService) EnqueueCleanup(ctx context.Context, userID string) error {
	return s.saveJob(ctx, &models.CleanupJob{
		UserID: userID,
		Stage:  models.StageReceivedLikes,
	})
}

func (s *CleanupService) loadJob(ctx context.Context, userID string) (*models.CleanupJob, error) {
	item, err := s.Dynamo.GetItem(ctx, models.CleanupJobsTable, cleanupJobKey(userID))
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil
	}

	var job models.CleanupJob
	if err := attributevalue.UnmarshalMap(item, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cleanup job '%s': %w", userID, err)
	}
	return &job, nil
}

func (s *CleanupService) saveJob(ctx context.Context, job *models.CleanupJob) error {
	job.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	return s.Dynamo.PutItem(ctx, models.CleanupJobsTable, job)
}

func (s *CleanupService) advance(ctx context.Context, job *models.CleanupJob, nextStage string) error {
	job.Stage = nextStage
	job.Cursor = ""
	return s.saveJob(ctx, job)
}

// RunCleanup drives the deletion cascade for one removed account, picking up
// from the persisted checkpoint. A transient store error ends the pass
// without advancing the checkpoint; the next invocation (a redelivered
// event or the scheduler) resumes from the same spot.
func (s *CleanupService) RunCleanup(ctx context.Context, userID string) error {
	job, err := s.loadJob(ctx, userID)
	if err != nil {
		return err
	}
	if job == nil {
		// No checkpoint: either a fresh deletion or a redelivery after the
		// cascade already finished. Re-running from the top is harmless.
		job = &models.CleanupJob{
			UserID: userID,
			Stage:  models.StageReceivedLikes,
		}
	}
	log.Printf("Cleaning up references for %s, starting at stage %s", userID, job.Stage)

	for {
		var err error
		switch job.Stage {
		case models.StageReceivedLikes:
			err = s.sweepReceivedLikes(ctx, job)
		case models.StageMatches:
			err = s.teardownMatches(ctx, job)
		case models.StageInteractions:
			err = s.teardownOwnInteractions(ctx, job)
		case models.StageReverseRefs:
			err = s.sweepReverseReferences(ctx, job)
		case models.StageStorage:
			if err = s.teardownStorage(ctx, job); err == nil {
				if err := s.Dynamo.DeleteItem(ctx, models.CleanupJobsTable, cleanupJobKey(userID)); err != nil {
					return err
				}
				log.Printf("Successfully cleaned up all references for %s", userID)
				return nil
			}
		default:
			return fmt.Errorf("unknown cleanup stage '%s' for user '%s'", job.Stage, userID)
		}
		if err != nil {
			log.Printf("Cleanup for %s stopped in stage %s: %v", userID, job.Stage, err)
			return err
		}
	}
}

// sweepReceivedLikes pages through the whole population and retracts the
// deleted account's mirror entry from every profile still holding one. Each
// retraction removes only that one key, so an append or subscription update
// landing between the scan and the write is untouched. The cursor checkpoint
// moves only after a page's removes have landed.
func (s *CleanupService) sweepReceivedLikes(ctx context.Context, job *models.CleanupJob) error {
	startKey := profileCursorKey(job.Cursor)
	for {
		items, lastKey, err := s.Dynamo.ScanPage(ctx, models.UserProfilesTable, startKey, cleanupPageSize)
		if err != nil {
			return err
		}

		for _, item := range items {
			var profile models.UserProfile
			if err := attributevalue.UnmarshalMap(item, &profile); err != nil {
				log.Printf("Skipping unreadable profile during receivedLikes sweep: %v", err)
				continue
			}
			if _, ok := profile.ReceivedLikes[job.UserID]; !ok {
				continue
			}
			if err := s.Profiles.RemoveReceivedLike(ctx, profile.UserID, job.UserID); err != nil {
				return err
			}
		}

		if len(lastKey) == 0 {
			log.Printf("Cleaned up receivedLikes references to %s", job.UserID)
			return s.advance(ctx, job, models.StageMatches)
		}
		job.Cursor = utils.ExtractString(lastKey, "userId")
		if err := s.saveJob(ctx, job); err != nil {
			return err
		}
		startKey = lastKey
	}
}

// teardownMatches deletes every match the deleted account participates in.
// The GSI queries are capped, so the stage re-queries until both slots come
// back empty; each round's deletes shrink the next round's result set.
func (s *CleanupService) teardownMatches(ctx context.Context, job *models.CleanupJob) error {
	deleted := 0
	for {
		matches, err := s.Matches.GetMatchesByUserID(ctx, job.UserID)
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			break
		}

		batch := newBatchFlusher(s.Dynamo, models.MatchesTable)
		for _, match := range matches {
			if err := batch.addDelete(ctx, MatchKey(match.MatchID)); err != nil {
				return err
			}
		}
		if err := batch.flush(ctx); err != nil {
			return err
		}
		deleted += len(matches)
	}

	log.Printf("Deleted %d matches for %s", deleted, job.UserID)
	return s.advance(ctx, job, models.StageInteractions)
}

// teardownOwnInteractions deletes the account's entire interaction ledger.
func (s *CleanupService) teardownOwnInteractions(ctx context.Context, job *models.CleanupJob) error {
	keyCondition := "PK = :pk"
	expressionValues := map[string]types.AttributeValue{
		":pk": &types.AttributeValueMemberS{Value: models.InteractionPK(job.UserID)},
	}

	batch := newBatchFlusher(s.Dynamo, models.InteractionsTable)
	var startKey map[string]types.AttributeValue
	deleted := 0
	for {
		items, lastKey, err := s.Dynamo.QueryPage(ctx, models.InteractionsTable, keyCondition, expressionValues, startKey, cleanupPageSize)
		if err != nil {
			return err
		}
		for _, item := range items {
			key := map[string]types.AttributeValue{"PK": item["PK"], "SK": item["SK"]}
			if err := batch.addDelete(ctx, key); err != nil {
				return err
			}
			deleted++
		}
		if err := batch.flush(ctx); err != nil {
			return err
		}
		if len(lastKey) == 0 {
			break
		}
		startKey = lastKey
	}

	log.Printf("Deleted %d interactions owned by %s", deleted, job.UserID)
	return s.advance(ctx, job, models.StageReverseRefs)
}

// sweepReverseReferences walks every remaining profile and deletes the one
// interaction record, if any, that targets the deleted account. This costs
// one point read per remaining user; the O(N) is the accepted price of not
// maintaining a reverse index on interactions.
func (s *CleanupService) sweepReverseReferences(ctx context.Context, job *models.CleanupJob) error {
	startKey := profileCursorKey(job.Cursor)
	for {
		items, lastKey, err := s.Dynamo.ScanPage(ctx, models.UserProfilesTable, startKey, cleanupPageSize)
		if err != nil {
			return err
		}

		batch := newBatchFlusher(s.Dynamo, models.InteractionsTable)
		for _, item := range items {
			ownerID := utils.ExtractString(item, "userId")
			if ownerID == "" || ownerID == job.UserID {
				continue
			}
			key := interactionKey(ownerID, job.UserID)
			found, err := s.Dynamo.GetItem(ctx, models.InteractionsTable, key)
			if err != nil {
				return err
			}
			if found == nil {
				continue
			}
			if err := batch.addDelete(ctx, key); err != nil {
				return err
			}
		}
		if err := batch.flush(ctx); err != nil {
			return err
		}

		if len(lastKey) == 0 {
			log.Printf("Deleted interaction references to %s", job.UserID)
			return s.advance(ctx, job, models.StageStorage)
		}
		job.Cursor = utils.ExtractString(lastKey, "userId")
		if err := s.saveJob(ctx, job); err != nil {
			return err
		}
		startKey = lastKey
	}
}

// teardownStorage empties the deleted account's storage namespace. This runs
// last so no step after it re-reads the user document.
func (s *CleanupService) teardownStorage(ctx context.Context, job *models.CleanupJob) error {
	_, err := s.Storage.DeleteUserObjects(ctx, job.UserID)
	return err
}

// ResumePendingCleanups picks up cascades that a previous invocation left
// unfinished, e.g. after a crash, a deploy, or the platform wall-clock
// limit.
func (s *CleanupService) ResumePendingCleanups(ctx context.Context) {
	var startKey map[string]types.AttributeValue
	for {
		items, lastKey, err := s.Dynamo.ScanPage(ctx, models.CleanupJobsTable, startKey, cleanupPageSize)
		if err != nil {
			log.Printf("Failed to scan cleanup jobs: %v", err)
			return
		}
		for _, item := range items {
			userID := utils.ExtractString(item, "userId")
			if userID == "" {
				continue
			}
			if err := s.RunCleanup(ctx, userID); err != nil {
				log.Printf("Resumed cleanup for %s did not finish: %v", userID, err)
			}
		}
		if len(lastKey) == 0 {
			return
		}
		startKey = lastKey
	}
}

// StartScheduler runs the resumer on an interval.
func (s *CleanupService) StartScheduler(interval time.Duration) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		log.Printf("Failed to create cleanup scheduler: %v", err)
		return
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			s.ResumePendingCleanups(context.Background())
		}),
	)
	if err != nil {
		log.Printf("Failed to schedule cleanup resumer: %v", err)
		return
	}
	scheduler.Start()
}
