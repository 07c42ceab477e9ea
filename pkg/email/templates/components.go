package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// Layout wraps content in a minimal, email-client friendly HTML document.
func Layout(title string, content ...templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w,
			`<!DOCTYPE html><html><head><meta charset="utf-8"><title>%s</title></head>`+
				`<body style="margin:0;padding:24px;background:#f4f4f5;font-family:Helvetica,Arial,sans-serif;color:#18181b">`+
				`<table role="presentation" width="100%%" cellpadding="0" cellspacing="0"><tr><td align="center">`+
				`<table role="presentation" width="560" cellpadding="0" cellspacing="0" style="background:#ffffff;border-radius:8px;padding:32px">`,
			templ.EscapeString(title),
		); err != nil {
			return err
		}
		for _, c := range content {
			if err := c.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</table></td></tr></table></body></html>`)
		return err
	})
}

// Heading renders a section title.
func Heading(text string) templ.Component {
	return element(`<tr><td><h1 style="font-size:20px;margin:0 0 16px">%s</h1></td></tr>`, text)
}

// Text renders a paragraph.
func Text(text string) templ.Component {
	return element(`<tr><td><p style="font-size:15px;line-height:22px;margin:0 0 12px">%s</p></td></tr>`, text)
}

// TextSecondary renders a muted paragraph, for footnotes.
func TextSecondary(text string) templ.Component {
	return element(`<tr><td><p style="font-size:13px;line-height:18px;margin:16px 0 0;color:#71717a">%s</p></td></tr>`, text)
}

// OTP renders a one-time code in a large monospace block.
func OTP(code string) templ.Component {
	return element(`<tr><td align="center"><p style="font-family:Menlo,Consolas,monospace;font-size:32px;letter-spacing:8px;margin:16px 0">%s</p></td></tr>`, code)
}

// DefinitionList renders label/value rows. Pairs are rendered in order.
func DefinitionList(pairs ...[2]string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<tr><td><table role="presentation" cellpadding="4" cellspacing="0" style="font-size:14px;margin:8px 0 12px">`); err != nil {
			return err
		}
		for _, p := range pairs {
			if _, err := fmt.Fprintf(w, `<tr><td style="color:#71717a">%s</td><td><strong>%s</strong></td></tr>`,
				templ.EscapeString(p[0]), templ.EscapeString(p[1])); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</table></td></tr>`)
		return err
	})
}

// PrimaryButton renders a call-to-action link. Unsafe URLs are replaced
// with about:invalid by templ.URL sanitization.
func PrimaryButton(label, href string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<tr><td align="center"><a href="%s" style="display:inline-block;margin:16px 0;padding:12px 24px;background:#18181b;color:#ffffff;text-decoration:none;border-radius:6px">%s</a></td></tr>`,
			templ.EscapeString(string(templ.URL(href))), templ.EscapeString(label))
		return err
	})
}

func element(format, text string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, format, templ.EscapeString(text))
		return err
	})
}
