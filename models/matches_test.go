package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchIDIsCanonical(t *testing.T) {
	assert.Equal(t, "alice_bob", MatchID("alice", "bob"))
	assert.Equal(t, "alice_bob", MatchID("bob", "alice"))
	assert.Equal(t, "user_123_user_456", MatchID("user_456", "user_123"))
}
