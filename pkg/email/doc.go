// Package email sends transactional emails through a provider-agnostic
// EmailSender.
//
// Two implementations are provided:
//   - NewPostmarkClient delivers through Postmark (github.com/mrz1836/postmark).
//   - NewDevSender writes each email to a directory as .html and .json files.
//
// New picks Postmark when POSTMARK_SERVER_TOKEN is set and the dev sender
// otherwise:
//
//	sender, err := email.New(cfg)
//	if err != nil {
//		return err
//	}
//	html, err := templates.Render(ctx, templates.Layout("Subject", templates.Text("...")))
//	err = sender.SendEmail(ctx, email.SendEmailParams{
//		SendTo:   "user@example.com",
//		Subject:  "Subject",
//		BodyHTML: html,
//		Tag:      "transfer-issued",
//	})
//
// Every sender validates SendEmailParams first and reports failures wrapped
// in ErrInvalidParams or ErrFailedToSendEmail.
package email
