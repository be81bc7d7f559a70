package site

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

type pageView struct {
	Lang   string
	Title  string
	Body   string
	Menus  []templ.Component
	Footer templ.Component
}

// layout writes the page shell around the menu and footer components.
func layout(view pageView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<!DOCTYPE html>\n<html lang='"+templ.EscapeString(view.Lang)+"'>\n<head>\n<meta charset='utf-8'>\n<title>"+templ.EscapeString(view.Title)+"</title>\n</head>\n<body>\n"); err != nil {
			return err
		}
		if len(view.Menus) > 0 {
			if _, err := io.WriteString(w, "<nav>\n"); err != nil {
				return err
			}
			for _, component := range view.Menus {
				if err := component.Render(ctx, w); err != nil {
					return err
				}
			}
			if _, err := io.WriteString(w, "</nav>\n"); err != nil {
				return err
			}
		}
		if view.Body != "" {
			if _, err := io.WriteString(w, "<main><p>"+templ.EscapeString(view.Body)+"</p></main>\n"); err != nil {
				return err
			}
		}
		if view.Footer != nil {
			if _, err := io.WriteString(w, "<table width='100%' cellspacing='0' cellpadding='0' border='0'>\n"); err != nil {
				return err
			}
			if err := view.Footer.Render(ctx, w); err != nil {
				return err
			}
			if _, err := io.WriteString(w, "</table>\n"); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</body>\n</html>\n")
		return err
	})
}
