package model

const (
	MaxAvatarSizeBytes = 5 * 1024 * 1024
	AvatarWidth        = 200
	AvatarHeight       = 200
	AvatarFolder       = "avatars"
	AvatarExt          = ".jpg"
	AvatarCacheControl = "public, max-age=31536000"
)

const (
	ContentTypeJPEG = "image/jpeg"
	ContentTypePNG  = "image/png"
	ContentTypeGIF  = "image/gif"
	ContentTypeWebP = "image/webp"
)

var allowedImageTypes = map[string]struct{}{
	ContentTypeJPEG: {},
	ContentTypePNG:  {},
	ContentTypeGIF:  {},
	ContentTypeWebP: {},
}

var (
	ErrFileTooLarge     = newKindError(ErrValidation, "file too large")
	ErrInvalidImageType = newKindError(ErrValidation, "invalid image type")
	ErrStorageDisabled  = newKindError(ErrValidation, "image upload is not configured")
)

// UploadResult is the public URL and bucket key of an uploaded object.
type UploadResult struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// IsAllowedImageType reports if the provided content type is supported
func IsAllowedImageType(contentType string) bool {
	_, ok := allowedImageTypes[contentType]
	return ok
}
