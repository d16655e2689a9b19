package mailer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/osteele/liquid"
)

// Template is a named subject/body pair with Liquid placeholders.
type Template struct {
	Name     string   `json:"name"`
	Subject  string   `json:"subject"`
	HTMLBody string   `json:"html_body"`
	Vars     []string `json:"variables"`
}

// TemplateService renders campaign templates with per-recipient
// bindings. Parsed templates are cached; the campaign loop renders the
// same template once per recipient.
type TemplateService struct {
	engine    *liquid.Engine
	cache     sync.Map // map[string]*liquid.Template
	templates map[string]Template
}

// NewTemplateService creates a service preloaded with the default
// outreach templates.
func NewTemplateService() *TemplateService {
	engine := liquid.NewEngine()

	engine.RegisterFilter("default", func(value interface{}, defaultVal string) interface{} {
		if value == nil {
			return defaultVal
		}
		if s := fmt.Sprintf("%v", value); s == "" || s == "<nil>" {
			return defaultVal
		}
		return value
	})
	engine.RegisterFilter("capitalize", func(s string) string {
		if len(s) == 0 {
			return s
		}
		return strings.ToUpper(string(s[0])) + s[1:]
	})

	ts := &TemplateService{
		engine:    engine,
		templates: make(map[string]Template),
	}
	for _, t := range defaultTemplates() {
		ts.templates[t.Name] = t
	}
	return ts
}

// Templates returns the available template names.
func (ts *TemplateService) Templates() []string {
	out := make([]string, 0, len(ts.templates))
	for name := range ts.templates {
		out = append(out, name)
	}
	return out
}

// Get returns a template by name.
func (ts *TemplateService) Get(name string) (Template, bool) {
	t, ok := ts.templates[name]
	return t, ok
}

// Add registers or replaces a template.
func (ts *TemplateService) Add(t Template) {
	ts.templates[t.Name] = t
	ts.cache.Delete(t.Name + ":subject")
	ts.cache.Delete(t.Name + ":body")
}

// Render produces the personalized subject and HTML body for one
// recipient binding set.
func (ts *TemplateService) Render(name string, bindings map[string]interface{}) (subject, html string, err error) {
	t, ok := ts.templates[name]
	if !ok {
		return "", "", fmt.Errorf("unknown template %q", name)
	}
	subject, err = ts.render(name+":subject", t.Subject, bindings)
	if err != nil {
		return "", "", fmt.Errorf("rendering subject: %w", err)
	}
	html, err = ts.render(name+":body", t.HTMLBody, bindings)
	if err != nil {
		return "", "", fmt.Errorf("rendering body: %w", err)
	}
	return subject, html, nil
}

func (ts *TemplateService) render(key, source string, bindings map[string]interface{}) (string, error) {
	var tmpl *liquid.Template
	if cached, ok := ts.cache.Load(key); ok {
		tmpl = cached.(*liquid.Template)
	} else {
		parsed, err := ts.engine.ParseTemplate([]byte(source))
		if err != nil {
			return "", err
		}
		ts.cache.Store(key, parsed)
		tmpl = parsed
	}
	out, err := tmpl.Render(bindings)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// RecipientBindings builds the standard variable set for one recipient.
// Custom vars overwrite the standard ones on key collision.
func RecipientBindings(businessName, email, senderName, senderCompany, senderEmail string, custom map[string]interface{}) map[string]interface{} {
	b := map[string]interface{}{
		"business_name":  businessName,
		"email":          email,
		"sender_name":    senderName,
		"sender_company": senderCompany,
		"sender_email":   senderEmail,
	}
	for k, v := range custom {
		b[k] = v
	}
	return b
}

func defaultTemplates() []Template {
	return []Template{
		{
			Name:    "business_intro",
			Subject: "Partnership Opportunity - {{ sender_company }} Timber & Wood Products",
			HTMLBody: `<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="color: #2c5530;">Dear {{ business_name | default: "Partner" }},</h2>
    <p>Greetings from <strong>{{ sender_company }}</strong>!</p>
    <p>During our recent market research we identified <strong>{{ business_name }}</strong>
    as a quality supplier and potential partner in the timber and wood products industry.</p>
    <div style="background-color: #f8f9fa; padding: 15px; border-radius: 8px;">
      <h3 style="color: #2c5530; margin-top: 0;">Our Requirements</h3>
      <ul style="margin: 0;">
        <li><strong>Products:</strong> {{ product_requirements | default: "timber and wood products" }}</li>
        <li><strong>Volume:</strong> {{ volume_requirements | default: "to be discussed" }}</li>
        <li><strong>Timeline:</strong> {{ timeline_requirements | default: "flexible" }}</li>
      </ul>
    </div>
    <p>We would be delighted to explore partnership opportunities with your organization.
    Could we schedule a brief discussion?</p>
    <p style="margin-top: 30px;">Best regards,<br>
      <strong>{{ sender_name }}</strong><br>
      <em>{{ sender_company }}</em><br>
      {{ sender_email }}</p>
  </div>
</body>
</html>`,
			Vars: []string{"business_name", "sender_company", "sender_name", "sender_email",
				"product_requirements", "volume_requirements", "timeline_requirements"},
		},
		{
			Name:    "supply_inquiry",
			Subject: "Supply Inquiry - {{ product_requirements | default: \"Wood Products\" }} from {{ sender_company }}",
			HTMLBody: `<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="color: #2c5530;">Dear {{ business_name }} Team,</h2>
    <p><strong>{{ sender_company }}</strong> is actively seeking reliable suppliers for our
    upcoming projects.</p>
    <p>We would appreciate if you could provide us with:</p>
    <ul>
      <li>Product catalog and specifications</li>
      <li>Pricing information</li>
      <li>Minimum order quantities</li>
      <li>Delivery terms and quality certifications</li>
    </ul>
    <p style="margin-top: 30px;">Best regards,<br>
      <strong>{{ sender_name }}</strong><br>
      <strong>{{ sender_company }}</strong><br>
      {{ sender_email }}</p>
  </div>
</body>
</html>`,
			Vars: []string{"business_name", "sender_company", "sender_name", "sender_email",
				"product_requirements"},
		},
	}
}
