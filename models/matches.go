package models

// MatchID builds the canonical match key: both participant ids joined in
// lexicographic order. Whichever direction discovers the mutual like, it
// lands on the same record.
func MatchID(a, b string) string {
	if a < b {
		return a + "_" + b
	}
	return b + "_" + a
}

// Match is the symmetric record of two mutual likes. user1Id/user2Id hold
// the sorted pair so either side can be queried through its GSI.
type Match struct {
	MatchID     string   `dynamodbav:"matchId" json:"matchId"`
	User1ID     string   `dynamodbav:"user1Id" json:"user1Id"`
	User2ID     string   `dynamodbav:"user2Id" json:"user2Id"`
	Users       []string `dynamodbav:"users" json:"users"`
	CreatedAt   string   `dynamodbav:"createdAt" json:"createdAt"`
	LastMessage *string  `dynamodbav:"lastMessage" json:"lastMessage"` // written by the messaging subsystem
}

// MatchesTable is the DynamoDB table name for matches
const MatchesTable = "Matches"

// GSIs for querying matches from either slot of the sorted pair
const (
	User1Index = "user1Id-index"
	User2Index = "user2Id-index"
)
