package models

// Cleanup stages, in the order the cascade runs them.
const (
	StageReceivedLikes = "received_likes"
	StageMatches       = "matches"
	StageInteractions  = "interactions"
	StageReverseRefs   = "reverse_refs"
	StageStorage       = "storage"
)

// CleanupJob is the persisted checkpoint for one deletion cascade. Cursor
// holds the last userId a population sweep fully processed, so a restarted
// run resumes after it instead of rescanning from the top. The record's
// existence is what marks the cascade as unfinished; it is deleted once the
// cascade completes.
type CleanupJob struct {
	UserID    string `dynamodbav:"userId" json:"userId"`
	Stage     string `dynamodbav:"stage" json:"stage"`
	Cursor    string `dynamodbav:"cursor,omitempty" json:"cursor,omitempty"`
	UpdatedAt string `dynamodbav:"updatedAt" json:"updatedAt"`
}

// CleanupJobsTable is the DynamoDB table name for cleanup checkpoints
const CleanupJobsTable = "CleanupJobs"
