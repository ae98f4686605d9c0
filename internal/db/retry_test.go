package db

import (
	"errors"
	"fmt"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
)

// mockMongoDuplicateKeyError creates an error that IsMongoDuplicateKeyError will recognize.
func mockMongoDuplicateKeyError(key string) error {
	mongoErr := mongo.WriteError{
		Code:    11000, // Duplicate key error code
		Message: fmt.Sprintf("E11000 duplicate key error collection: test.action_tokens index: _id_ dup key: { : %q }", key),
	}
	return mongo.WriteException{WriteErrors: []mongo.WriteError{mongoErr}}
}

func TestWithRetries_SuccessfulFirstAttempt(t *testing.T) {
	var opCalled int
	operation := func() error {
		opCalled++
		return nil
	}

	err := WithRetries(operation, 3, IsMongoDuplicateKeyError)
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if opCalled != 1 {
		t.Errorf("Expected operation to be called 1 time, got %d", opCalled)
	}
}

func TestWithRetries_FailureNonDuplicateKey(t *testing.T) {
	var opCalled int
	expectedErr := errors.New("some other error")
	operation := func() error {
		opCalled++
		return expectedErr
	}

	err := WithRetries(operation, 3, IsMongoDuplicateKeyError)
	if !errors.Is(err, expectedErr) {
		t.Errorf("Expected error %v, got %v", expectedErr, err)
	}
	if opCalled != 1 {
		t.Errorf("Expected operation to be called 1 time, got %d", opCalled)
	}
}

func TestWithRetries_ExhaustRetries(t *testing.T) {
	var opCalled int
	operation := func() error {
		opCalled++
		return mockMongoDuplicateKeyError("tok1")
	}

	maxRetries := 3
	err := WithRetries(operation, maxRetries, IsMongoDuplicateKeyError)

	if err == nil {
		t.Fatal("Expected a duplicate key error, got nil")
	}
	if !IsMongoDuplicateKeyError(err) {
		t.Errorf("Expected a Mongo duplicate key error, got %T: %v", err, err)
	}

	expectedOpCalls := maxRetries + 1
	if opCalled != expectedOpCalls {
		t.Errorf("Expected operation to be called %d times, got %d", expectedOpCalls, opCalled)
	}
}

func TestWithRetries_CollisionResolves(t *testing.T) {
	// The operation regenerates its id on every attempt, like the token
	// issue path does; the second attempt no longer collides.
	inserted := map[string]bool{"tok1": true}
	ids := []string{"tok1", "tok2"}
	var opCalled int

	operation := func() error {
		id := ids[opCalled]
		opCalled++
		if inserted[id] {
			return mockMongoDuplicateKeyError(id)
		}
		inserted[id] = true
		return nil
	}

	if err := WithRetries(operation, 3, IsMongoDuplicateKeyError); err != nil {
		t.Fatalf("Expected no error as collision should resolve, got: %v", err)
	}
	if opCalled != 2 {
		t.Errorf("Expected operation to be called 2 times, got %d", opCalled)
	}
	if !inserted["tok2"] {
		t.Error("Expected tok2 to be inserted after retry")
	}
}

func TestIsTransactionUnsupported(t *testing.T) {
	if IsTransactionUnsupported(nil) {
		t.Error("nil error should not look like an unsupported transaction")
	}
	if IsTransactionUnsupported(errors.New("token already used")) {
		t.Error("ordinary errors should not look like an unsupported transaction")
	}
	ce := mongo.CommandError{Code: 20, Message: "Transaction numbers are only allowed on a replica set member or mongos"}
	if !IsTransactionUnsupported(ce) {
		t.Error("IllegalOperation command error should be recognized")
	}
	wrapped := fmt.Errorf("consume failed: %w", ce)
	if !IsTransactionUnsupported(wrapped) {
		t.Error("wrapped IllegalOperation should be recognized")
	}
}
