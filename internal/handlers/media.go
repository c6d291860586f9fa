package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	applog "foodgram/internal/log"
)

const recipeImageDir = "recipes/images"

var errInvalidImage = errors.New("media: image must be a base64 data URI of a png, jpeg, gif or webp file")

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// decodeImage parses a "data:image/...;base64," URI and sniffs the real
// content type from the decoded bytes.
func decodeImage(data string) ([]byte, string, error) {
	header, encoded, ok := strings.Cut(strings.TrimSpace(data), ";base64,")
	if !ok || !strings.HasPrefix(header, "data:image/") {
		return nil, "", errInvalidImage
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(raw) == 0 {
		return nil, "", errInvalidImage
	}
	ext, ok := imageExtensions[http.DetectContentType(raw)]
	if !ok {
		return nil, "", errInvalidImage
	}
	return raw, ext, nil
}

// saveImage stores the decoded image under the media root and returns its
// path relative to that root.
func saveImage(data string) (string, error) {
	raw, ext, err := decodeImage(data)
	if err != nil {
		return "", err
	}

	name := path.Join(recipeImageDir, uuid.NewString()+ext)
	target := filepath.Join(mediaRoot, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create media directory: %w", err)
	}
	if err := os.WriteFile(target, raw, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return name, nil
}

func removeImage(ctx context.Context, name string) {
	if name == "" {
		return
	}
	target := filepath.Join(mediaRoot, filepath.FromSlash(name))
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		applog.Error(ctx, "failed to remove image", "error", err, "image", name)
	}
}

func imageURL(r *http.Request, name string) string {
	if name == "" {
		return ""
	}
	return absoluteURL(r, mediaURL+name)
}
