package events

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/levishimwe/bookswap/internal/config"
	"github.com/levishimwe/bookswap/internal/email"
	"github.com/levishimwe/bookswap/internal/models"
	"github.com/levishimwe/bookswap/internal/services"
)

const (
	swapsCollection    = "swaps"
	accessCollection   = "access_requests"
	messagesCollection = "messages"
)

const defaultLocale = "en-US"

// Reactors holds the dependencies the event reactors need. Each reactor
// resolves the human recipient, optionally mints action tokens, and sends
// one email. All failures are reported to the registry, which logs them.
type Reactors struct {
	cfg         *config.Config
	tokenSvc    services.ITokenService
	userSvc     services.IUserService
	templateSvc services.ITemplateService
	sender      email.Sender
}

// NewReactors creates the reactor set.
func NewReactors(cfg *config.Config, tokenSvc services.ITokenService, userSvc services.IUserService, templateSvc services.ITemplateService, sender email.Sender) *Reactors {
	return &Reactors{
		cfg:         cfg,
		tokenSvc:    tokenSvc,
		userSvc:     userSvc,
		templateSvc: templateSvc,
		sender:      sender,
	}
}

// RegisterAll binds the four reactors to their trigger events.
func (r *Reactors) RegisterAll(registry *Registry) {
	registry.Register(swapsCollection, EventInsert, r.OnSwapCreated)
	registry.Register(accessCollection, EventInsert, r.OnAccessRequestCreated)
	registry.Register(accessCollection, EventUpdate, r.OnAccessRequestUpdated)
	registry.Register(messagesCollection, EventInsert, r.OnMessageCreated)
}

// resolveEmail looks up a user's email by id. Returns "" (and no error)
// when the user does not exist: a missing recipient is a silent no-op.
func (r *Reactors) resolveEmail(ctx context.Context, userID string) (string, error) {
	user, err := r.userSvc.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", nil
		}
		return "", err
	}
	return user.Email, nil
}

// notify renders the template and sends the email, best-effort.
func (r *Reactors) notify(ctx context.Context, to, templateID string, data map[string]interface{}) error {
	tmpl, err := r.templateSvc.GetTemplate(ctx, templateID, defaultLocale)
	if err != nil {
		return err
	}
	subject, body, err := r.templateSvc.Render(tmpl, data)
	if err != nil {
		return err
	}
	recipients := []string{to}
	raw := email.BuildHTMLMessage(r.cfg.SmtpFromAddress, recipients, subject, body)
	if err := r.sender.Send(ctx, recipients, subject, raw); err != nil {
		return fmt.Errorf("failed to send %s email to %s: %w", templateID, to, err)
	}
	return nil
}

// OnSwapCreated mints accept and reject tokens for a fresh swap offer and
// emails the receiver a two-link decision email.
func (r *Reactors) OnSwapCreated(ctx context.Context, ev Event) error {
	var swap models.Swap
	if err := bson.Unmarshal(ev.Document, &swap); err != nil {
		return fmt.Errorf("malformed swap document: %w", err)
	}

	to, err := r.resolveEmail(ctx, swap.ReceiverID)
	if err != nil {
		return err
	}
	if to == "" {
		log.Printf("Swap %s receiver %s has no user record, skipping notification", swap.ID, swap.ReceiverID)
		return nil
	}

	meta := map[string]string{models.MetaBookID: swap.BookID}
	acceptID, err := r.tokenSvc.Issue(ctx, models.TargetSwaps, swap.ID, models.ActionAccept, meta)
	if err != nil {
		return err
	}
	rejectID, err := r.tokenSvc.Issue(ctx, models.TargetSwaps, swap.ID, models.ActionReject, meta)
	if err != nil {
		return err
	}

	return r.notify(ctx, to, services.TemplateSwapOffer, map[string]interface{}{
		"sender_name": swap.SenderName,
		"book_title":  swap.BookTitle,
		"accept_url":  r.cfg.ActionURL(acceptID),
		"reject_url":  r.cfg.ActionURL(rejectID),
	})
}

// OnAccessRequestCreated mints grant and decline tokens for a new access
// request and emails the book owner.
func (r *Reactors) OnAccessRequestCreated(ctx context.Context, ev Event) error {
	var req models.AccessRequest
	if err := bson.Unmarshal(ev.Document, &req); err != nil {
		return fmt.Errorf("malformed access request document: %w", err)
	}

	to, err := r.resolveEmail(ctx, req.OwnerID)
	if err != nil {
		return err
	}
	if to == "" {
		log.Printf("Access request %s owner %s has no user record, skipping notification", req.ID, req.OwnerID)
		return nil
	}

	meta := map[string]string{
		models.MetaBookID:      req.BookID,
		models.MetaRequesterID: req.RequesterID,
	}
	grantID, err := r.tokenSvc.Issue(ctx, models.TargetAccessRequests, req.ID, models.ActionGrant, meta)
	if err != nil {
		return err
	}
	declineID, err := r.tokenSvc.Issue(ctx, models.TargetAccessRequests, req.ID, models.ActionDecline, meta)
	if err != nil {
		return err
	}

	return r.notify(ctx, to, services.TemplateAccessRequest, map[string]interface{}{
		"requester_name": req.RequesterName,
		"book_title":     req.BookTitle,
		"type":           req.Type,
		"grant_url":      r.cfg.ActionURL(grantID),
		"decline_url":    r.cfg.ActionURL(declineID),
	})
}

// OnAccessRequestUpdated notifies the requester of a decision. Fires only
// when the write actually changed the status field; other field updates are
// ignored. No tokens involved.
func (r *Reactors) OnAccessRequestUpdated(ctx context.Context, ev Event) error {
	if !updatedStatus(ev.UpdatedFields) {
		return nil
	}

	var req models.AccessRequest
	if err := bson.Unmarshal(ev.Document, &req); err != nil {
		return fmt.Errorf("malformed access request document: %w", err)
	}

	to, err := r.resolveEmail(ctx, req.RequesterID)
	if err != nil {
		return err
	}
	if to == "" {
		log.Printf("Access request %s requester %s has no user record, skipping notification", req.ID, req.RequesterID)
		return nil
	}

	return r.notify(ctx, to, services.TemplateAccessDecision, map[string]interface{}{
		"book_title": req.BookTitle,
		"status":     string(req.Status),
	})
}

// OnMessageCreated sends a plain informational email to the receiver of a
// new chat message. No tokens involved.
func (r *Reactors) OnMessageCreated(ctx context.Context, ev Event) error {
	var msg models.Message
	if err := bson.Unmarshal(ev.Document, &msg); err != nil {
		return fmt.Errorf("malformed message document: %w", err)
	}

	to, err := r.resolveEmail(ctx, msg.ReceiverID)
	if err != nil {
		return err
	}
	if to == "" {
		log.Printf("Message %s receiver %s has no user record, skipping notification", msg.ID, msg.ReceiverID)
		return nil
	}

	return r.notify(ctx, to, services.TemplateNewMessage, map[string]interface{}{
		"sender_name": msg.SenderName,
		"text":        msg.Text,
	})
}

// updatedStatus reports whether the change touched the status field.
func updatedStatus(updatedFields bson.Raw) bool {
	if len(updatedFields) == 0 {
		return false
	}
	_, err := updatedFields.LookupErr("status")
	return err == nil
}
