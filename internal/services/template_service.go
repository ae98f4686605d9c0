package services

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/levishimwe/bookswap/internal/models"
)

// Template ids for the four notification kinds.
const (
	TemplateSwapOffer      = "swap_offer"
	TemplateAccessRequest  = "access_request"
	TemplateNewMessage     = "new_message"
	TemplateAccessDecision = "access_decision"
)

// Default email templates used as fallback when not found in database.
var defaultEmailTemplates = map[string]models.EmailTemplate{
	TemplateSwapOffer: {
		TemplateID: TemplateSwapOffer,
		Locale:     "en-US",
		Subject:    "New swap offer: {{.book_title}}",
		Body: `<p>{{.sender_name}} offered you a swap for <b>{{.book_title}}</b>.</p>` +
			`<p><a href="{{.accept_url}}">Accept</a> &nbsp;|&nbsp; <a href="{{.reject_url}}">Reject</a></p>`,
	},
	TemplateAccessRequest: {
		TemplateID: TemplateAccessRequest,
		Locale:     "en-US",
		Subject:    "Access request for {{.book_title}}",
		Body: `<p>{{.requester_name}} requested access to <b>{{.type}}</b> "{{.book_title}}".</p>` +
			`<p><a href="{{.grant_url}}">Grant</a> &nbsp;|&nbsp; <a href="{{.decline_url}}">Decline</a></p>`,
	},
	TemplateNewMessage: {
		TemplateID: TemplateNewMessage,
		Locale:     "en-US",
		Subject:    "New message from {{.sender_name}}",
		Body:       `<p>You have a new message:</p><p><b>{{.sender_name}}:</b> {{.text}}</p>`,
	},
	TemplateAccessDecision: {
		TemplateID: TemplateAccessDecision,
		Locale:     "en-US",
		Subject:    "Your request for {{.book_title}} was {{.status}}",
		Body:       `<p>Your access request for "{{.book_title}}" is now: <b>{{.status}}</b>.</p>`,
	},
}

// ITemplateService defines the interface for email template operations.
type ITemplateService interface {
	GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error)
	Render(tmpl *models.EmailTemplate, data map[string]interface{}) (subject, body string, err error)
}

const emailTemplatesCollection = "email_templates"

// TemplateService handles operations related to email templates.
type TemplateService struct {
	db *mongo.Database
}

// NewTemplateService creates a new instance of TemplateService.
func NewTemplateService(db *mongo.Database) *TemplateService {
	return &TemplateService{db: db}
}

// GetTemplate retrieves an email template by ID and locale, falling back to
// the compiled-in defaults when the database has no override.
func (s *TemplateService) GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error) {
	collection := s.db.Collection(emailTemplatesCollection)
	filter := bson.M{
		"template_id": templateID,
		"locale":      locale,
	}

	var template models.EmailTemplate
	err := collection.FindOne(ctx, filter).Decode(&template)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			if defaultTemplate, ok := defaultEmailTemplates[templateID]; ok {
				return &defaultTemplate, nil
			}
			return nil, fmt.Errorf("template not found: %s (locale: %s)", templateID, locale)
		}
		return nil, fmt.Errorf("error retrieving template: %w", err)
	}

	return &template, nil
}

// Render executes the template's subject and body against data. The body is
// rendered with html/template so user-supplied values (names, message text)
// are escaped; the subject uses text/template since it is not HTML.
func (s *TemplateService) Render(tmpl *models.EmailTemplate, data map[string]interface{}) (string, string, error) {
	subjTmpl, err := texttemplate.New("subject").Parse(tmpl.Subject)
	if err != nil {
		return "", "", fmt.Errorf("invalid subject template %s: %w", tmpl.TemplateID, err)
	}
	var subj bytes.Buffer
	if err := subjTmpl.Execute(&subj, data); err != nil {
		return "", "", fmt.Errorf("failed to render subject for %s: %w", tmpl.TemplateID, err)
	}

	bodyTmpl, err := htmltemplate.New("body").Parse(tmpl.Body)
	if err != nil {
		return "", "", fmt.Errorf("invalid body template %s: %w", tmpl.TemplateID, err)
	}
	var body bytes.Buffer
	if err := bodyTmpl.Execute(&body, data); err != nil {
		return "", "", fmt.Errorf("failed to render body for %s: %w", tmpl.TemplateID, err)
	}

	return subj.String(), body.String(), nil
}

// SaveTemplate upserts an email template in the database.
func (s *TemplateService) SaveTemplate(ctx context.Context, template *models.EmailTemplate) error {
	collection := s.db.Collection(emailTemplatesCollection)
	filter := bson.M{
		"template_id": template.TemplateID,
		"locale":      template.Locale,
	}

	update := bson.M{"$set": template}
	opts := options.Update().SetUpsert(true)

	if _, err := collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("error saving template: %w", err)
	}
	return nil
}
