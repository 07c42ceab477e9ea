package transfer

import (
	"fmt"
	"time"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/blackfile/pkg/email/templates"
	"github.com/dmitrymomot/blackfile/pkg/file"
)

const (
	issueSubject  = "Your BlackFile secure link"
	timestampForm = "Jan 2, 2006 15:04 MST"
)

func downloadSubject(filename string) string {
	return fmt.Sprintf("BlackFile: %s File '%s' Was Downloaded Successfully",
		file.Extension(filename, "Unknown"), filename)
}

func issueEmail(filename, link, code string, expiresAt time.Time) templ.Component {
	return templates.Layout(issueSubject,
		templates.Heading("A file is waiting for you"),
		templates.Text("Someone sent you a file with BlackFile. Open the link and enter the code below together with the secret key the sender gives you separately."),
		templates.OTP(code),
		templates.DefinitionList(
			[2]string{"File", filename},
			[2]string{"Expires", expiresAt.Format(timestampForm)},
		),
		templates.PrimaryButton("Open transfer", link),
		templates.TextSecondary("The link works once. The file is deleted after the first download or when it expires."),
	)
}

func downloadEmail(filename, origin string, at time.Time) templ.Component {
	if origin == "" {
		origin = "unknown"
	}
	return templates.Layout(downloadSubject(filename),
		templates.Heading("Your file was downloaded"),
		templates.DefinitionList(
			[2]string{"File", filename},
			[2]string{"Downloaded", at.Format(timestampForm)},
			[2]string{"From", origin},
		),
		templates.TextSecondary("The encrypted file has been deleted from our servers and the link no longer works."),
	)
}
