package service

import (
	"bytes"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/pkordes/recipe-api/internal/domain"
)

// recipeImageDir is the key prefix for recipe uploads.
const recipeImageDir = "uploads/recipe"

var contentTypes = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
}

var extRe = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

var formatExt = map[string]string{
	"jpeg": ".jpg",
	"png":  ".png",
	"gif":  ".gif",
}

// maxImagePixels bounds width*height before a full decode is attempted.
const maxImagePixels = 50_000_000

const invalidImageMsg = "upload a valid image; the file you uploaded was either not an image or a corrupted image"

// detectImage returns the decoded format name ("jpeg", "png" or "gif").
// The header is checked first so oversized dimensions are rejected without
// allocating, then the whole payload must decode.
func detectImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", domain.FieldError("image", "the submitted file is empty")
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", domain.FieldError("image", invalidImageMsg)
	}
	if _, ok := contentTypes[format]; !ok {
		return "", domain.FieldError("image", "unsupported image format "+format)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > maxImagePixels {
		return "", domain.FieldError("image", "image dimensions are out of range")
	}
	if _, _, err := image.Decode(bytes.NewReader(data)); err != nil {
		return "", domain.FieldError("image", invalidImageMsg)
	}
	return format, nil
}

// recipeImageKey builds "uploads/recipe/<uuid>.<ext>". The extension comes from
// the client filename when it has one, otherwise from the detected format.
func recipeImageKey(filename, format string) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(filename, `\`, "/"))))
	if !extRe.MatchString(ext) {
		ext = formatExt[format]
	}
	return path.Join(recipeImageDir, uuid.NewString()+ext)
}
