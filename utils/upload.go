package utils

import (
	"context"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"companion-booking-server/config"
)

// UploadImage uploads an image (profile photo, payment QR, verification
// document) to Cloudinary and returns its secure URL.
func UploadImage(file multipart.File, filename, kind string) (string, error) {
	cfg := config.AppConfig.Cloudinary

	var cld *cloudinary.Cloudinary
	var err error
	if cfg.URL != "" {
		cld, err = cloudinary.NewFromURL(cfg.URL)
	} else {
		cld, err = cloudinary.New()
	}
	if err != nil {
		return "", err
	}

	result, err := cld.Upload.Upload(context.Background(), file, uploader.UploadParams{
		ResourceType: "image",
		PublicID:     fmt.Sprintf("%s/%s/%s_%d", cfg.Folder, kind, filename, time.Now().Unix()),
	})
	if err != nil {
		return "", err
	}

	return result.SecureURL, nil
}
