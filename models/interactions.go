package models

// Interaction actions. A pass is terminal: it is recorded so the user is not
// offered again, but it never feeds matching or notifications.
const (
	ActionLike = "like"
	ActionPass = "pass"
)

// Interaction records one directional decision. At most one interaction
// exists per ordered (sender, receiver) pair and it is never updated after
// creation.
type Interaction struct {
	PK         string `dynamodbav:"PK" json:"PK"` // "USER#<senderId>"
	SK         string `dynamodbav:"SK" json:"SK"` // "INTERACTION#<receiverId>"
	SenderID   string `dynamodbav:"senderId" json:"senderId"`
	ReceiverID string `dynamodbav:"receiverId" json:"receiverId"`
	Action     string `dynamodbav:"action" json:"action"`
	CreatedAt  string `dynamodbav:"createdAt" json:"createdAt"`
}

// InteractionPK builds the partition key for a user's interaction ledger.
func InteractionPK(userID string) string { return "USER#" + userID }

// InteractionSK builds the sort key for the interaction toward one user.
func InteractionSK(otherID string) string { return "INTERACTION#" + otherID }

// InteractionsTable is the DynamoDB table name for interactions
const InteractionsTable = "Interactions"
