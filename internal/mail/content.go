// basecampy | 2026
// content.go

package mail

import (
	"fmt"
	"html"
)

const bodyTemplate = `<html>
<body style="font-family: Helvetica, Arial, sans-serif; color: #333;">
  <p>Hi %s,</p>
  <p>%s</p>
  <p>%s</p>
  <p style="margin: 24px 0;">
    <a href="%s"
       style="background-color: #22BC66; color: #fff; padding: 10px 20px;
              border-radius: 4px; text-decoration: none;">%s</a>
  </p>
  <p>Or paste this link into your browser:<br>%s</p>
  <p>Need help, or have questions? Just reply to this email, we'd love to help.</p>
</body>
</html>`

func verificationBody(username, link string) string {
	safeLink := html.EscapeString(link)
	return fmt.Sprintf(bodyTemplate,
		html.EscapeString(username),
		"Welcome to base camp! We're very excited to have you on board.",
		"To verify your email, please click here:",
		safeLink,
		"Confirm your account",
		safeLink,
	)
}

func passwordResetBody(username, link string) string {
	safeLink := html.EscapeString(link)
	return fmt.Sprintf(bodyTemplate,
		html.EscapeString(username),
		"We got a request to reset the password of your account.",
		"To reset your password, please click on the following button or link:",
		safeLink,
		"Reset your password",
		safeLink,
	)
}
