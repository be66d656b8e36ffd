package mail

import (
	"bytes"
	"html/template"
	"strings"
	texttemplate "text/template"
)

const linkTpl = `<!DOCTYPE html>
<html>
<body style="font-family:sans-serif;background:#f5f5f5;padding:20px">
<div style="max-width:600px;margin:0 auto;background:#fff;border-radius:8px;padding:24px">
  <h2 style="color:#333">{{.Heading}}</h2>
  <p>Hi {{.Name}},</p>
  <p>{{.Intro}}</p>
  <p style="margin-top:24px">
    <a href="{{.URL}}" style="background:#4f46e5;color:#fff;padding:8px 16px;text-decoration:none;border-radius:4px">{{.Action}}</a>
  </p>
  <p style="color:#999;font-size:12px">{{.Outro}}</p>
  <p style="color:#999;font-size:12px">{{.Site}}</p>
</div>
</body>
</html>`

const linkTextTpl = `Hi {{.Name}},

{{.Intro}}

{{.Action}}: {{.URL}}

{{.Outro}}
-- {{.Site}}
`

var (
	linkHTML = template.Must(template.New("link").Parse(linkTpl))
	linkText = texttemplate.Must(texttemplate.New("link").Parse(linkTextTpl))
)

// LinkData fills the single-call-to-action template.
type LinkData struct {
	Site    string
	Name    string
	Heading string
	Intro   string
	Action  string
	URL     string
	Outro   string
}

// LinkMessage renders a message whose body is one call-to-action link.
func LinkMessage(to, subject string, data LinkData) (Message, error) {
	var h, t bytes.Buffer
	if err := linkHTML.Execute(&h, data); err != nil {
		return Message{}, err
	}
	if err := linkText.Execute(&t, data); err != nil {
		return Message{}, err
	}
	return Message{To: []string{to}, Subject: subject, HTML: h.String(), Text: strings.TrimSpace(t.String())}, nil
}

// PasswordReset builds the password reset email.
func PasswordReset(site, to, name, url string) (Message, error) {
	return LinkMessage(to, "Reset your password", LinkData{
		Site:    site,
		Name:    name,
		Heading: "Password reset",
		Intro:   "Someone asked to reset the password for your account. Use the link below to choose a new one.",
		Action:  "Reset password",
		URL:     url,
		Outro:   "If you did not request this you can ignore this email; your password will not change.",
	})
}

// VerifyEmail builds the email address confirmation email.
func VerifyEmail(site, to, name, url string) (Message, error) {
	return LinkMessage(to, "Confirm your email address", LinkData{
		Site:    site,
		Name:    name,
		Heading: "Confirm your email",
		Intro:   "Thanks for signing up. Please confirm your email address.",
		Action:  "Confirm email",
		URL:     url,
		Outro:   "If you did not create an account you can ignore this email.",
	})
}
