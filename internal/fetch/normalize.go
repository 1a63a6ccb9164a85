package fetch

import (
	"bytes"
	"image"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"golang.org/x/net/html"
)

// jpegQuality is the encode quality for every persisted image.
const jpegQuality = 95

// sniffLimit bounds how many bytes of a rejected payload are inspected
// for HTML structure.
const sniffLimit = 4096

// Normalize decodes data as an image (jpeg, png, gif, or webp) and
// re-encodes it as JPEG at quality 95. Sources with an alpha channel are
// composited over an opaque white background first; transparency is never
// carried into the output. Already-JPEG sources are re-encoded too, so
// every output is uniform and source metadata is dropped.
func Normalize(data []byte) (jpegData []byte, img image.Image, format string, err error) {
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, "", err
	}

	flattened := flattenOntoWhite(src)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flattened, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, nil, "", err
	}
	return buf.Bytes(), flattened, format, nil
}

// flattenOntoWhite draws src over an opaque white background.
// For fully opaque sources this is a plain copy; for sources with alpha
// it replaces transparency with white, matching what viewers show for
// JPEG, which has no alpha channel.
func flattenOntoWhite(src image.Image) *image.RGBA {
	bounds := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Over)
	return dst
}

// looksLikeHTML reports whether data parses as the start of an HTML
// document. Image hosts commonly answer dead links with a 200 status and
// an HTML error page; naming that in the rejection makes run logs
// actionable.
func looksLikeHTML(data []byte) bool {
	if len(data) > sniffLimit {
		data = data[:sniffLimit]
	}

	tokenizer := html.NewTokenizer(bytes.NewReader(data))
	for i := 0; i < 10; i++ {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return false
		case html.DoctypeToken:
			return true
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			switch string(name) {
			case "html", "head", "body", "title", "meta", "script":
				return true
			}
		}
	}
	return false
}
