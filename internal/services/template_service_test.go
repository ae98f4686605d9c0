package services

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/levishimwe/bookswap/internal/models"
)

var testMongoURITemplate = ""

func init() {
	testMongoURITemplate = os.Getenv("MONGO_URI_TEST")
	if testMongoURITemplate == "" {
		testMongoURITemplate = "mongodb://localhost:27017"
	}
}

func setupTestDBTemplate(t *testing.T, dbName string) *mongo.Database {
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(testMongoURITemplate))
	if err != nil {
		t.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	if err := client.Database(dbName).Drop(context.Background()); err != nil {
		t.Logf("Database drop error (may be normal): %v", err)
	}
	return client.Database(dbName)
}

func TestGetTemplateFallsBackToDefaults(t *testing.T) {
	db := setupTestDBTemplate(t, "bookswap_test_templates_default")
	svc := NewTemplateService(db)

	tmpl, err := svc.GetTemplate(context.Background(), TemplateSwapOffer, "en-US")
	require.NoError(t, err)
	assert.Equal(t, TemplateSwapOffer, tmpl.TemplateID)
	assert.Contains(t, tmpl.Body, "{{.accept_url}}")
	assert.Contains(t, tmpl.Body, "{{.reject_url}}")
}

func TestGetTemplateUnknownID(t *testing.T) {
	db := setupTestDBTemplate(t, "bookswap_test_templates_unknown")
	svc := NewTemplateService(db)

	_, err := svc.GetTemplate(context.Background(), "no_such_template", "en-US")
	assert.Error(t, err)
}

func TestGetTemplatePrefersDatabaseOverride(t *testing.T) {
	db := setupTestDBTemplate(t, "bookswap_test_templates_override")
	svc := NewTemplateService(db)
	ctx := context.Background()

	override := &models.EmailTemplate{
		TemplateID: TemplateNewMessage,
		Locale:     "en-US",
		Subject:    "Custom: message from {{.sender_name}}",
		Body:       "<p>{{.text}}</p>",
	}
	require.NoError(t, svc.SaveTemplate(ctx, override))

	tmpl, err := svc.GetTemplate(ctx, TemplateNewMessage, "en-US")
	require.NoError(t, err)
	assert.Equal(t, "Custom: message from {{.sender_name}}", tmpl.Subject)
}

func TestRenderSubstitutesData(t *testing.T) {
	svc := NewTemplateService(nil)

	tmpl := &models.EmailTemplate{
		TemplateID: TemplateAccessDecision,
		Subject:    "Your request for {{.book_title}} was {{.status}}",
		Body:       `<p>Your access request for "{{.book_title}}" is now: <b>{{.status}}</b>.</p>`,
	}
	subject, body, err := svc.Render(tmpl, map[string]interface{}{
		"book_title": "Dune",
		"status":     "Accepted",
	})
	require.NoError(t, err)
	assert.Equal(t, "Your request for Dune was Accepted", subject)
	assert.Contains(t, body, "<b>Accepted</b>")
}

func TestRenderEscapesHTMLInBody(t *testing.T) {
	svc := NewTemplateService(nil)

	tmpl := &models.EmailTemplate{
		TemplateID: TemplateNewMessage,
		Subject:    "New message from {{.sender_name}}",
		Body:       "<p><b>{{.sender_name}}:</b> {{.text}}</p>",
	}
	_, body, err := svc.Render(tmpl, map[string]interface{}{
		"sender_name": "Alice",
		"text":        `<script>alert("x")</script>`,
	})
	require.NoError(t, err)
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "&lt;script&gt;")
}

func TestRenderRejectsBadTemplate(t *testing.T) {
	svc := NewTemplateService(nil)

	tmpl := &models.EmailTemplate{
		TemplateID: "broken",
		Subject:    "ok",
		Body:       "{{.unclosed",
	}
	_, _, err := svc.Render(tmpl, nil)
	assert.Error(t, err)
}
