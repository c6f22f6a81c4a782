package handler

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/account-service/internal/api/metrics"
	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
)

const (
	imageUploaderEndpoint = "imageUploader"
	maxUploadBytes        = 4 << 20
)

// UploadHandler accepts avatar uploads and returns their public URL.
type UploadHandler struct {
	images ports.ImageStore
}

func NewUploadHandler(images ports.ImageStore) *UploadHandler {
	return &UploadHandler{images: images}
}

type uploadResponse struct {
	URL string `json:"url"`
}

// Upload stores an image for the named endpoint.
//
// @Summary      Upload an image
// @Tags         uploads
// @Accept       multipart/form-data
// @Produce      json
// @Param        endpoint  path      string  true  "Upload endpoint (imageUploader)"
// @Param        file      formData  file    true  "Image (jpeg, png or gif, up to 4MB)"
// @Success      200       {object}  uploadResponse
// @Failure      401       {object}  map[string]string
// @Failure      413       {object}  map[string]string
// @Failure      422       {object}  map[string]string
// @Router       /api/uploadthing/{endpoint} [post]
func (h *UploadHandler) Upload(c echo.Context) error {
	if c.Param("endpoint") != imageUploaderEndpoint {
		return echo.NewHTTPError(http.StatusNotFound, "unknown upload endpoint")
	}

	file, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return echo.NewHTTPError(http.StatusBadRequest, "file is required")
		}
		return echo.NewHTTPError(http.StatusBadRequest, "invalid upload")
	}

	url, err := uploadImage(c.Request().Context(), h.images, file)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, uploadResponse{URL: url})
}

func uploadImage(ctx context.Context, images ports.ImageStore, fh *multipart.FileHeader) (string, error) {
	url, err := storeImage(ctx, images, fh)
	metrics.ImageUploadsTotal.WithLabelValues(uploadResult(err)).Inc()
	return url, err
}

func storeImage(ctx context.Context, images ports.ImageStore, fh *multipart.FileHeader) (string, error) {
	if fh.Size > maxUploadBytes {
		return "", domain.ErrImageTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	return images.UploadImage(ctx, f, fh.Size)
}
