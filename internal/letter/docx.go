package letter

import (
	"strings"

	"github.com/gingfrederik/docx"

	"github.com/amishk599/jobfeed/internal/model"
)

// RenderDocx writes the letter to path as a Word document headed by the
// listing it was written for.
func RenderDocx(path string, l model.Listing, text string) error {
	f := docx.NewFile()

	title := f.AddParagraph().AddText(l.Headline)
	title.Size(16)
	if l.Employer != "" {
		meta := f.AddParagraph().AddText(l.Employer)
		meta.Size(10)
		meta.Color("808080")
	}
	f.AddParagraph()

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para != "" {
			f.AddParagraph().AddText(para)
		}
	}

	return f.Save(path)
}
