// Package footer renders the decorative domains bar footer rows.
package footer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// ErrFooterWrite reports that the footer could not be written, usually
// because the client went away.
var ErrFooterWrite = errors.New("footer io error")

var rows = []string{
	"<tr>",
	"\t<td width='100%' class='intfdcolor51'><img src='icons/1px.gif' width='1' height='6'></td>",
	"\t<td rowspan='3' colspan='2' class='intfdcolor51'><img src='icons/angleBasDomainsBar.gif' width='8' height='8'></td>",
	"</tr>",
	"<tr>",
	"\t<td width='100%' class='intfdcolor4'><img src='icons/1px.gif' width='1' height='1'></td>",
	"</tr>",
	"<tr class='intfdcolor13'>",
	"\t<td width='100%'><img src='icons/1px.gif' width='1' height='1'></td>",
	"</tr>",
}

// Footer is the domains bar footer.
type Footer struct {
	// IconAngleBas is accepted for page compatibility; the markup does not use it.
	IconAngleBas string
}

// Render writes the footer rows to w.
func (f Footer) Render(w io.Writer) error {
	for _, row := range rows {
		if _, err := io.WriteString(w, row+"\n"); err != nil {
			return fmt.Errorf("%w: %v", ErrFooterWrite, err)
		}
	}
	return nil
}

// Component adapts the footer to templ; write failures propagate to the page.
func (f Footer) Component() templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return f.Render(w)
	})
}
