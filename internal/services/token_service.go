package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/levishimwe/bookswap/internal/config"
	"github.com/levishimwe/bookswap/internal/db"
	"github.com/levishimwe/bookswap/internal/models"
	"github.com/levishimwe/bookswap/internal/utils"
)

// TokenStatus is the outcome of validating an action token.
type TokenStatus string

const (
	TokenValid       TokenStatus = "valid"
	TokenExpired     TokenStatus = "expired"
	TokenAlreadyUsed TokenStatus = "already_used"
)

// Sentinel errors surfaced to the action handler, which maps them to
// HTTP status codes.
var (
	ErrTokenNotFound    = errors.New("action token not found")
	ErrTokenExpired     = errors.New("action token expired")
	ErrTokenAlreadyUsed = errors.New("action token already used")
	ErrUnknownTarget    = errors.New("unknown action target")
)

// ITokenService defines the interface for minting and consuming single-use
// action tokens.
type ITokenService interface {
	Issue(ctx context.Context, targetCollection, targetID string, action models.TokenAction, meta map[string]string) (string, error)
	Resolve(ctx context.Context, tokenID string) (*models.ActionToken, error)
	Validate(token *models.ActionToken) TokenStatus
	InvalidateSiblings(ctx context.Context, targetCollection, targetID, excludeTokenID string) (int64, error)
	ConsumeAndApply(ctx context.Context, tokenID string) (*models.ActionToken, error)
	SweepExpired(ctx context.Context, olderThan time.Duration) (int64, error)
}

const (
	tokensCollection = "action_tokens"
	swapsCollection  = "swaps"
	accessCollection = "access_requests"
	booksCollection  = "books"
)

// tokenService implements ITokenService.
type tokenService struct {
	db  *mongo.Database
	cfg *config.Config
}

// NewTokenService creates a new TokenService.
func NewTokenService(db *mongo.Database, cfg *config.Config) ITokenService {
	return &tokenService{db: db, cfg: cfg}
}

// Issue generates an unguessable identifier and persists a fresh unused
// token for the target. Calling it repeatedly for the same target is fine:
// each call yields an independent token (e.g. the accept and reject halves
// of one decision).
func (s *tokenService) Issue(ctx context.Context, targetCollection, targetID string, action models.TokenAction, meta map[string]string) (string, error) {
	var tokenID string
	err := db.Try(func() error {
		id, err := utils.NewTokenID()
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		_, err = s.db.Collection(tokensCollection).InsertOne(ctx, &models.ActionToken{
			ID:               id,
			TargetCollection: targetCollection,
			TargetID:         targetID,
			Action:           action,
			Meta:             meta,
			Used:             false,
			CreatedAt:        now,
			ExpiresAt:        now.Add(s.cfg.ActionTokenTTL),
		})
		if err != nil {
			return err
		}
		tokenID = id
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to issue %s token for %s/%s: %w", action, targetCollection, targetID, err)
	}
	return tokenID, nil
}

// Resolve looks up a token by its identifier.
func (s *tokenService) Resolve(ctx context.Context, tokenID string) (*models.ActionToken, error) {
	var token models.ActionToken
	err := s.db.Collection(tokensCollection).FindOne(ctx, bson.M{"_id": tokenID}).Decode(&token)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("database error resolving token: %w", err)
	}
	return &token, nil
}

// Validate reports whether a resolved token can still be consumed.
// A used token reports AlreadyUsed even when it is also past expiry:
// used means the decision was already taken, which is the more useful
// thing to tell the clicker.
func (s *tokenService) Validate(token *models.ActionToken) TokenStatus {
	if token.Used {
		return TokenAlreadyUsed
	}
	if token.IsExpired() {
		return TokenExpired
	}
	return TokenValid
}

// InvalidateSiblings marks every unused token for the target pair as used in
// one batch. excludeTokenID, when non-empty, is left untouched. Once any
// token for a target is consumed the decision is final, so the complementary
// links must stop working.
func (s *tokenService) InvalidateSiblings(ctx context.Context, targetCollection, targetID, excludeTokenID string) (int64, error) {
	filter := bson.M{
		"target_collection": targetCollection,
		"target_id":         targetID,
		"used":              false,
	}
	if excludeTokenID != "" {
		filter["_id"] = bson.M{"$ne": excludeTokenID}
	}
	now := time.Now().UTC()
	res, err := s.db.Collection(tokensCollection).UpdateMany(ctx, filter, bson.M{
		"$set": bson.M{"used": true, "used_at": now},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to invalidate sibling tokens for %s/%s: %w", targetCollection, targetID, err)
	}
	return res.ModifiedCount, nil
}

// ConsumeAndApply claims the token, applies its state transition to the
// target record, and invalidates sibling tokens, all inside one transaction.
// The claim is a conditional write on used=false, so of two concurrent
// clicks on the same target exactly one commits; the loser aborts with
// ErrTokenAlreadyUsed before touching the target. On any error the
// transaction rolls back and the token remains unconsumed, so a failed
// attempt is safely retryable by clicking the link again.
//
// On a standalone server (no transactions) it falls back to the weaker
// apply-then-invalidate ordering: each write is still atomic, but two
// near-simultaneous sibling clicks can both pass validation and each apply
// their own mutation, last committed wins.
func (s *tokenService) ConsumeAndApply(ctx context.Context, tokenID string) (*models.ActionToken, error) {
	token, err := s.Resolve(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	switch s.Validate(token) {
	case TokenAlreadyUsed:
		return nil, ErrTokenAlreadyUsed
	case TokenExpired:
		return nil, ErrTokenExpired
	}
	if token.TargetCollection != models.TargetSwaps && token.TargetCollection != models.TargetAccessRequests {
		return nil, ErrUnknownTarget
	}

	err = db.WithTransaction(ctx, s.db.Client(), func(sc mongo.SessionContext) error {
		return s.consume(sc, token)
	})
	if err != nil && db.IsTransactionUnsupported(err) {
		log.Printf("MongoDB transactions unavailable, consuming token without transactional guard")
		err = s.consumeWeak(ctx, token)
	}
	if err != nil {
		return nil, err
	}

	token.Used = true
	return token, nil
}

// consume is the transactional path: claim first, then apply, then
// invalidate. The rollback on error keeps the token unconsumed.
func (s *tokenService) consume(ctx context.Context, token *models.ActionToken) error {
	now := time.Now().UTC()

	res, err := s.db.Collection(tokensCollection).UpdateOne(ctx,
		bson.M{"_id": token.ID, "used": false},
		bson.M{"$set": bson.M{"used": true, "used_at": now}},
	)
	if err != nil {
		return fmt.Errorf("failed to claim token: %w", err)
	}
	if res.MatchedCount == 0 {
		// Lost the race to a sibling (or a duplicate click).
		return ErrTokenAlreadyUsed
	}

	if err := s.applyDecision(ctx, token, now); err != nil {
		return err
	}

	if _, err := s.InvalidateSiblings(ctx, token.TargetCollection, token.TargetID, token.ID); err != nil {
		return err
	}
	return nil
}

// consumeWeak applies the mutation first and only then invalidates every
// token for the target (this one included), so a failed apply leaves the
// token unconsumed and the link retryable. If invalidation fails after a
// successful apply the decision stands and stale sibling tokens linger;
// that degraded state is logged, not treated as fatal.
func (s *tokenService) consumeWeak(ctx context.Context, token *models.ActionToken) error {
	now := time.Now().UTC()

	if err := s.applyDecision(ctx, token, now); err != nil {
		return err
	}

	if _, err := s.InvalidateSiblings(ctx, token.TargetCollection, token.TargetID, ""); err != nil {
		log.Printf("ERROR: decision applied for %s/%s but token invalidation failed: %v",
			token.TargetCollection, token.TargetID, err)
	}
	return nil
}

// applyDecision performs the target-record state transition plus the related
// inventory update for the token's action.
func (s *tokenService) applyDecision(ctx context.Context, token *models.ActionToken, now time.Time) error {
	switch token.TargetCollection {
	case models.TargetSwaps:
		return s.applySwapDecision(ctx, token, now)
	case models.TargetAccessRequests:
		return s.applyAccessDecision(ctx, token, now)
	default:
		return ErrUnknownTarget
	}
}

func (s *tokenService) applySwapDecision(ctx context.Context, token *models.ActionToken, now time.Time) error {
	var status models.SwapStatus
	switch token.Action {
	case models.ActionAccept:
		status = models.SwapAccepted
	case models.ActionReject:
		status = models.SwapRejected
	default:
		return fmt.Errorf("action %q is not valid for swaps", token.Action)
	}

	res, err := s.db.Collection(swapsCollection).UpdateOne(ctx,
		bson.M{"_id": token.TargetID},
		bson.M{"$set": bson.M{"status": status, "decided_at": now}},
	)
	if err != nil {
		return fmt.Errorf("failed to update swap %s: %w", token.TargetID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("swap %s not found", token.TargetID)
	}

	// Rejecting a swap puts the book back on the shelf.
	if status == models.SwapRejected {
		if bookID := token.Meta[models.MetaBookID]; bookID != "" {
			_, err := s.db.Collection(booksCollection).UpdateOne(ctx,
				bson.M{"_id": bookID},
				bson.M{
					"$set":   bson.M{"is_available": true},
					"$unset": bson.M{"swap_id": ""},
				},
			)
			if err != nil {
				return fmt.Errorf("failed to restore book %s availability: %w", bookID, err)
			}
		}
	}
	return nil
}

func (s *tokenService) applyAccessDecision(ctx context.Context, token *models.ActionToken, now time.Time) error {
	var status models.AccessRequestStatus
	switch token.Action {
	case models.ActionGrant:
		status = models.AccessAccepted
	case models.ActionDecline:
		status = models.AccessDeclined
	default:
		return fmt.Errorf("action %q is not valid for access requests", token.Action)
	}

	res, err := s.db.Collection(accessCollection).UpdateOne(ctx,
		bson.M{"_id": token.TargetID},
		bson.M{"$set": bson.M{"status": status, "decided_at": now}},
	)
	if err != nil {
		return fmt.Errorf("failed to update access request %s: %w", token.TargetID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("access request %s not found", token.TargetID)
	}

	// Granting adds the requester to the book's allow-list. $addToSet keeps
	// set semantics: a duplicate grant leaves the requester listed once.
	if status == models.AccessAccepted {
		bookID := token.Meta[models.MetaBookID]
		requesterID := token.Meta[models.MetaRequesterID]
		if bookID != "" && requesterID != "" {
			_, err := s.db.Collection(booksCollection).UpdateOne(ctx,
				bson.M{"_id": bookID},
				bson.M{"$addToSet": bson.M{"allowed_user_ids": requesterID}},
			)
			if err != nil {
				return fmt.Errorf("failed to update allow-list on book %s: %w", bookID, err)
			}
		}
	}
	return nil
}

// SweepExpired marks unused tokens whose expiry is older than the retention
// window as used, keeping the hot used=false query path small. Tokens are
// never deleted; consumed and swept ones remain as an audit trail.
func (s *tokenService) SweepExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	now := time.Now().UTC()
	res, err := s.db.Collection(tokensCollection).UpdateMany(ctx,
		bson.M{"used": false, "expires_at": bson.M{"$lt": cutoff}},
		bson.M{"$set": bson.M{"used": true, "used_at": now}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired tokens: %w", err)
	}
	return res.ModifiedCount, nil
}
