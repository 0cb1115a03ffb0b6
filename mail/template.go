package mail

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/matcornic/hermes/v2"
	"github.com/pkg/errors"

	"github.com/gitmesh/newsletter"
)

// Fixed subjects for lifecycle emails
const (
	SubjectConfirmation = "Confirm your newsletter subscription"
	SubjectWelcome      = "Welcome to the newsletter"
)

// Email is a fully rendered message: subject plus HTML and plaintext bodies
type Email struct {
	Subject string
	HTML    string
	Text    string
}

// Templates renders lifecycle and campaign emails. It is pure and
// stateless: the same inputs always produce the same output.
type Templates struct {
	baseURL string
	h       hermes.Hermes
}

// NewTemplates returns a template renderer. baseURL is the public site
// root that confirm/unsubscribe links point back to.
func NewTemplates(productName, productLink, baseURL string) *Templates {
	return &Templates{
		baseURL: strings.TrimRight(baseURL, "/"),
		h: hermes.Hermes{
			Product: hermes.Product{
				Name: productName,
				Link: productLink,
			},
		},
	}
}

// ConfirmURL builds the double opt-in confirmation link. The token is
// already URL-safe hex and is passed through unencoded.
func (t *Templates) ConfirmURL(email, token string) string {
	return fmt.Sprintf("%s/confirm?email=%s&token=%s", t.baseURL, url.QueryEscape(email), token)
}

// UnsubscribeURL builds the unsubscribe link for a subscriber
func (t *Templates) UnsubscribeURL(email, token string) string {
	return fmt.Sprintf("%s/unsubscribe?email=%s&token=%s", t.baseURL, url.QueryEscape(email), token)
}

// ConfirmationEmail renders the double opt-in email. The confirmation URL
// appears in both the HTML and text bodies.
func (t *Templates) ConfirmationEmail(email, name, confirmURL string) (*Email, error) {
	he := hermes.Email{
		Body: hermes.Body{
			Name: name,
			Intros: []string{
				fmt.Sprintf("You requested a subscription to the %s newsletter for %s.", t.h.Product.Name, email),
			},
			Actions: []hermes.Action{
				{
					Instructions: "Click the button below to confirm your subscription:",
					Button: hermes.Button{
						Color: "#22BC66",
						Text:  "Confirm subscription",
						Link:  confirmURL,
					},
				},
			},
			Outros: []string{
				"Or open this link directly: " + confirmURL,
				"If you did not request this, you can safely ignore this email.",
			},
		},
	}

	return t.render(SubjectConfirmation, he)
}

// WelcomeEmail renders the post-confirmation welcome email
func (t *Templates) WelcomeEmail(email, name, unsubscribeURL string) (*Email, error) {
	he := hermes.Email{
		Body: hermes.Body{
			Name: name,
			Intros: []string{
				fmt.Sprintf("Your subscription to the %s newsletter is confirmed.", t.h.Product.Name),
				"You will receive updates to your inbox.",
			},
			Outros: []string{
				"To stop receiving the newsletter, open this link: " + unsubscribeURL,
			},
		},
	}

	return t.render(SubjectWelcome, he)
}

// CampaignSubject resolves the subject of a campaign email: an explicit
// subject wins, otherwise it is derived from the number of included posts.
func CampaignSubject(explicit string, postCount int) string {
	if explicit != "" {
		return explicit
	}
	switch postCount {
	case 0:
		return "Newsletter"
	case 1:
		return "Newsletter - 1 New Post"
	default:
		return fmt.Sprintf("Newsletter - %d New Posts", postCount)
	}
}

// CampaignEmail renders one newsletter issue for a single subscriber.
// The custom content fragment is included verbatim; the unsubscribe URL is
// always embedded.
func (t *Templates) CampaignEmail(sub *newsletter.Subscriber, posts []newsletter.Post, subject, customContent, unsubscribeURL string) (*Email, error) {
	var md strings.Builder

	if customContent != "" {
		md.WriteString(customContent)
		md.WriteString("\n\n")
	}

	for _, p := range posts {
		fmt.Fprintf(&md, "## %s\n\n", p.Title)
		if p.Author != "" {
			fmt.Fprintf(&md, "by %s\n\n", p.Author)
		}
		if p.Excerpt != "" {
			md.WriteString(p.Excerpt)
			md.WriteString("\n\n")
		}
		fmt.Fprintf(&md, "Read more: %s\n\n", p.URL)
	}

	fmt.Fprintf(&md, "---\n\nUnsubscribe: %s\n", unsubscribeURL)

	he := hermes.Email{
		Body: hermes.Body{
			Name:         sub.Name,
			FreeMarkdown: hermes.Markdown(md.String()),
		},
	}

	return t.render(CampaignSubject(subject, len(posts)), he)
}

func (t *Templates) render(subject string, he hermes.Email) (*Email, error) {
	html, err := t.h.GenerateHTML(he)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate HTML email")
	}

	text, err := t.h.GeneratePlainText(he)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate plaintext email")
	}

	return &Email{
		Subject: subject,
		HTML:    html,
		Text:    text,
	}, nil
}
