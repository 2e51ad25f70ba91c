package domain

// UploadedImage is the raw image received with a restoration request.
type UploadedImage struct {
	Filename  string
	MediaType string
	Data      []byte
}

// Size returns the byte length of the image payload.
func (i *UploadedImage) Size() int64 {
	if i == nil {
		return 0
	}
	return int64(len(i.Data))
}
