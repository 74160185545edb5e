package messaging

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"sync"
	texttemplate "text/template"
)

// Template names understood by the Renderer.
const (
	TemplateDocumentExpiring = "document_expiring"
	TemplateComplianceDue    = "compliance_due"
	TemplateComplianceUpdate = "compliance_update"
	TemplateWelcome          = "welcome"
	TemplateNotification     = "notification"
	TemplateBulk             = "bulk"
	TemplatePasswordReset    = "password_reset"
)

type templateSource struct {
	subject string
	text    string
	html    string
}

var builtinTemplates = map[string]templateSource{
	TemplateDocumentExpiring: {
		subject: `Document expiring: {{.title}}`,
		text:    `{{.title}} ({{.type}}) for {{.company_name}} expires on {{.expiry_date}}. Please renew it before the expiry date.`,
		html: `<p>Dear {{.user_name}},</p>
<p>The document <strong>{{.title}}</strong> ({{.type}}) held by {{.company_name}} expires on <strong>{{.expiry_date}}</strong>.</p>
<p>Please renew it before the expiry date to stay compliant.</p>`,
	},
	TemplateComplianceDue: {
		subject: `Compliance check due: {{.rule_title}}`,
		text:    `{{.rule_title}} is due on {{.due_date}} (priority {{.priority}}).`,
		html: `<p>Dear {{.user_name}},</p>
<p>The compliance requirement <strong>{{.rule_title}}</strong> is due on <strong>{{.due_date}}</strong>.</p>
<p>Priority: {{.priority}}</p>`,
	},
	TemplateComplianceUpdate: {
		subject: `Compliance update: {{.rule_title}}`,
		text:    `{{.rule_title}} is now {{.status}}.{{if .notes}} Notes: {{.notes}}{{end}}`,
		html: `<p>Dear {{.user_name}},</p>
<p>The compliance status of <strong>{{.rule_title}}</strong> is now <strong>{{.status}}</strong>.</p>
{{if .due_date}}<p>Next due date: {{.due_date}}</p>{{end}}
{{if .notes}}<p>Notes: {{.notes}}</p>{{end}}`,
	},
	TemplateWelcome: {
		subject: `Welcome to {{.app_name}}`,
		text:    `Welcome {{.name}}! Your account for {{.company_name}} is ready.`,
		html: `<h1>Welcome, {{.name}}</h1>
<p>Your compliance workspace for <strong>{{.company_name}}</strong> is ready.</p>`,
	},
	TemplateNotification: {
		subject: `Action required: {{.action_required}}`,
		text:    `Hello {{.user_name}}, {{.company_name}} requires: {{.action_required}}.`,
		html: `<p>Hello {{.user_name}},</p>
<p><strong>{{.company_name}}</strong> requires your attention: {{.action_required}}.</p>`,
	},
	TemplatePasswordReset: {
		subject: `Reset your password`,
		text:    `Hello {{.name}}, use this code to reset your password: {{.reset_token}}. It expires in {{.expires_in}}.`,
		html: `<p>Hello {{.name}},</p>
<p>Use this code to reset your password: <strong>{{.reset_token}}</strong></p>
<p>The code expires in {{.expires_in}}. If you did not ask for a reset, ignore this email.</p>`,
	},
	TemplateBulk: {
		subject: `{{.subject}}`,
		text:    `{{.message}}`,
		html:    `<p>{{.message}}</p>`,
	},
}

// Rendered is a template applied to data.
type Rendered struct {
	Subject string
	Text    string
	HTML    string
}

type compiledTemplate struct {
	subject *texttemplate.Template
	text    *texttemplate.Template
	html    *htmltemplate.Template
}

// Renderer compiles the built-in templates once and renders them on demand.
type Renderer struct {
	once      sync.Once
	err       error
	templates map[string]compiledTemplate
}

func NewRenderer() *Renderer {
	return &Renderer{}
}

func (r *Renderer) compile() {
	r.templates = make(map[string]compiledTemplate, len(builtinTemplates))
	for name, src := range builtinTemplates {
		subject, err := texttemplate.New(name + ".subject").Option("missingkey=zero").Parse(src.subject)
		if err != nil {
			r.err = fmt.Errorf("template %s subject: %w", name, err)
			return
		}
		text, err := texttemplate.New(name + ".text").Option("missingkey=zero").Parse(src.text)
		if err != nil {
			r.err = fmt.Errorf("template %s text: %w", name, err)
			return
		}
		html, err := htmltemplate.New(name + ".html").Option("missingkey=zero").Parse(src.html)
		if err != nil {
			r.err = fmt.Errorf("template %s html: %w", name, err)
			return
		}
		r.templates[name] = compiledTemplate{subject: subject, text: text, html: html}
	}
}

// Render applies the named template. Missing keys render as empty values.
func (r *Renderer) Render(name string, data map[string]interface{}) (*Rendered, error) {
	r.once.Do(r.compile)
	if r.err != nil {
		return nil, r.err
	}
	tmpl, ok := r.templates[name]
	if !ok {
		return nil, fmt.Errorf("unknown template %q", name)
	}

	var subject, text, html bytes.Buffer
	if err := tmpl.subject.Execute(&subject, data); err != nil {
		return nil, err
	}
	if err := tmpl.text.Execute(&text, data); err != nil {
		return nil, err
	}
	if err := tmpl.html.Execute(&html, data); err != nil {
		return nil, err
	}
	return &Rendered{Subject: subject.String(), Text: text.String(), HTML: html.String()}, nil
}
