package extract

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
)

// ooxmlText walks an OOXML body and collects character data inside text run
// elements (local name textElem, "t" in both WordprocessingML and DrawingML),
// emitting a newline at the end of each paragraph element (paraElem, "p").
func ooxmlText(content []byte, textElem, paraElem string) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))
	var b strings.Builder
	depth := 0 // nesting depth of text run elements

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == textElem {
				depth++
			}
		case xml.EndElement:
			switch t.Name.Local {
			case textElem:
				if depth > 0 {
					depth--
				}
			case paraElem:
				b.WriteString("\n")
			}
		case xml.CharData:
			if depth > 0 {
				b.Write(t)
			}
		}
	}
	return b.String(), nil
}
