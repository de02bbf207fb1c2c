package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"socialmedia_api/internal/logging"
	"socialmedia_api/internal/model"
	"socialmedia_api/internal/service"
)

// maxFormSize leaves room for text fields next to a full-size avatar.
const maxFormSize = int64(model.MaxAvatarSizeBytes) + 1<<20

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// parseMultipart bounds and parses a multipart body.
func parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return model.ErrFileTooLarge
		}
		return model.NewValidationError("invalid form data")
	}
	return nil
}

// uploadAvatar stores the "avatar" form file when present. It returns nil
// without error when the form carries no avatar.
func uploadAvatar(r *http.Request, media *service.MediaService) (*model.UploadResult, error) {
	file, header, err := r.FormFile("avatar")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, model.NewValidationError("invalid avatar upload")
	}
	defer file.Close()

	if media == nil {
		return nil, model.ErrStorageDisabled
	}
	return media.UploadAvatar(r.Context(), file, header)
}

// discardAvatar removes an uploaded object whose owner was never saved or
// has since been replaced. Failures only leave an orphaned object behind.
func discardAvatar(ctx context.Context, media *service.MediaService, key *string) {
	if media == nil || key == nil {
		return
	}
	if err := media.DeleteObject(ctx, *key); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("key", *key).Msg("delete avatar object failed")
	}
}
