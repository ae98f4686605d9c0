package models

// EmailTemplate is a localized subject/body pair stored in the
// email_templates collection. Subject and Body use html/template syntax.
type EmailTemplate struct {
	TemplateID string `bson:"template_id" json:"template_id"`
	Locale     string `bson:"locale" json:"locale"`
	Subject    string `bson:"subject" json:"subject"`
	Body       string `bson:"body" json:"body"`
}
