package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/shashiranjanraj/kisanmart/app/models"
	"github.com/shashiranjanraj/kisanmart/pkg/logger"
	"github.com/shashiranjanraj/kisanmart/pkg/storage"
)

const (
	MaxImagesPerUpload = 5
	MaxImageBytes      = 5 << 20
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ImageService stores product images on a storage disk.
type ImageService struct {
	disk storage.Disk
}

func NewImageService(disk storage.Disk) *ImageService {
	return &ImageService{disk: disk}
}

// Save validates and stores the uploaded files under products/. The
// content type is sniffed from the file, not taken from the client.
func (s *ImageService) Save(ctx context.Context, files []*multipart.FileHeader) ([]models.Image, error) {
	if len(files) == 0 {
		return nil, Invalid("No images uploaded")
	}
	if len(files) > MaxImagesPerUpload {
		return nil, Invalid(fmt.Sprintf("You can upload at most %d images", MaxImagesPerUpload))
	}

	out := make([]models.Image, 0, len(files))
	for _, fh := range files {
		img, err := s.saveOne(ctx, fh)
		if err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, nil
}

func (s *ImageService) saveOne(ctx context.Context, fh *multipart.FileHeader) (models.Image, error) {
	if fh.Size > MaxImageBytes {
		return models.Image{}, Invalid(fmt.Sprintf("%s is larger than 5MB", fh.Filename))
	}
	f, err := fh.Open()
	if err != nil {
		return models.Image{}, fmt.Errorf("services: open upload: %w", err)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return models.Image{}, fmt.Errorf("services: read upload: %w", err)
	}
	head = head[:n]
	contentType := http.DetectContentType(head)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return models.Image{}, Invalid(fmt.Sprintf("%s is not a supported image", fh.Filename))
	}

	path := "products/" + uuid.NewString() + ext
	body := io.MultiReader(bytes.NewReader(head), f)
	if err := s.disk.Put(ctx, path, body, contentType); err != nil {
		return models.Image{}, fmt.Errorf("services: store image: %w", err)
	}
	logger.WithCtx(ctx).Info("product image stored", "path", path, "bytes", fh.Size)

	alt := strings.TrimSuffix(filepath.Base(fh.Filename), filepath.Ext(fh.Filename))
	return models.Image{URL: s.disk.URL(path), Alt: alt}, nil
}
