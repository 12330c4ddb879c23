package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"bitbucket.org/xxlgroup/orderhub_backend/config"
	"bitbucket.org/xxlgroup/orderhub_backend/middlewares"
	"bitbucket.org/xxlgroup/orderhub_backend/models"
	"bitbucket.org/xxlgroup/orderhub_backend/utils"
)

const maxUploadSizeBytes int64 = 2 * 1024 * 1024 * 1024

func validUploadSize(size int64) bool {
	return size > 0 && size <= maxUploadSizeBytes
}

var imageMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

var documentMimeTypes = map[string]bool{
	"application/pdf": true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"image/jpeg": true,
	"image/png":  true,
}

type uploadSignRequest struct {
	FileName string `json:"fileName" binding:"required"`
	MimeType string `json:"mimeType" binding:"required"`
	Size     int64  `json:"size" binding:"required"`
	Kind     string `json:"kind"` // "avatar" or "document"
}

type uploadCompleteRequest struct {
	ObjectKey string `json:"objectKey" binding:"required"`
	MimeType  string `json:"mimeType"`
	Kind      string `json:"kind"`
}

// SignUploadHandler hands out a short-lived signed PUT URL so order documents
// and avatars go straight to the bucket.
func SignUploadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := middlewares.SessionUser(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}

		var req uploadSignRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, err)
			return
		}
		if !validUploadSize(req.Size) {
			respondError(c, utils.NewValidationError("file size must be between 1 byte and %d MB",
				maxUploadSizeBytes/(1024*1024)))
			return
		}
		if err := utils.ValidateSafeFilename(req.FileName); err != nil {
			respondError(c, err)
			return
		}

		allowed := documentMimeTypes
		prefix := "documents"
		if req.Kind == "avatar" {
			allowed = imageMimeTypes
			prefix = "avatars"
		}
		if !allowed[req.MimeType] {
			respondError(c, utils.NewValidationError("unsupported file type %q", req.MimeType))
			return
		}

		ext := strings.ToLower(filepath.Ext(req.FileName))
		objectKey := path.Join(prefix, fmt.Sprintf("u%d", user.ID), utils.GenerateUniqueFilename()+ext)

		signed, err := utils.SignUpload(objectKey, req.MimeType, 15*time.Minute)
		if err != nil {
			config.LogError(config.GetLogger(), "handlers", "SignUploadHandler", "sign upload", objectKey, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign upload"})
			return
		}

		config.GetLogger().WithFields(logrus.Fields{
			"user_id":    user.ID,
			"mime_type":  req.MimeType,
			"size":       req.Size,
			"object_key": objectKey,
		}).Info("[upload.sign]")
		respondData(c, signed)
	}
}

// CompleteUploadHandler verifies the uploaded object and finishes per kind:
// avatars get a thumbnail and land on the profile; spreadsheet documents get
// a parse sanity check before the key is handed back for the order record.
func CompleteUploadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := middlewares.SessionUser(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}

		var req uploadCompleteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, err)
			return
		}
		if strings.Contains(req.ObjectKey, "..") || strings.HasPrefix(req.ObjectKey, "/") {
			respondError(c, utils.NewValidationError("invalid object key"))
			return
		}

		ctx := c.Request.Context()
		exists, err := utils.ObjectExistsInGCS(ctx, req.ObjectKey)
		if err != nil {
			respondError(c, err)
			return
		}
		if !exists {
			respondError(c, utils.NewValidationError("object %q was never uploaded", req.ObjectKey))
			return
		}

		if req.Kind == "avatar" {
			thumbnailKey, err := buildAvatarThumbnail(ctx, req.ObjectKey)
			if err != nil {
				config.LogError(config.GetLogger(), "handlers", "CompleteUploadHandler", "thumbnail", req.ObjectKey, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate thumbnail"})
				return
			}
			updated, err := models.UpdateProfile(ctx, user.ID, &models.UpdateProfileInput{
				Name:         user.Name,
				Phone:        user.Phone,
				AvatarUrl:    utils.BuildObjectAccessURL(req.ObjectKey),
				ThumbnailUrl: utils.BuildObjectAccessURL(thumbnailKey),
			})
			if err != nil {
				respondError(c, err)
				return
			}
			respondData(c, updated)
			return
		}

		if isSpreadsheet(req.MimeType, req.ObjectKey) {
			if err := checkSpreadsheetParses(ctx, req.ObjectKey); err != nil {
				respondError(c, utils.NewValidationError("spreadsheet does not parse: %v", err))
				return
			}
		}
		respondData(c, gin.H{
			"objectKey": req.ObjectKey,
			"accessUrl": utils.BuildObjectAccessURL(req.ObjectKey),
		})
	}
}

func buildAvatarThumbnail(ctx context.Context, objectKey string) (string, error) {
	data, err := utils.ReadObjectFromGCS(ctx, objectKey, maxUploadSizeBytes)
	if err != nil {
		return "", err
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	thumbnail := imaging.Resize(img, 200, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumbnail, imaging.JPEG); err != nil {
		return "", err
	}

	thumbnailKey := path.Join(path.Dir(objectKey), "thumbnails", path.Base(objectKey))
	if err := utils.SaveBytesToGCS(ctx, thumbnailKey, "image/jpeg", buf.Bytes()); err != nil {
		return "", err
	}
	return thumbnailKey, nil
}

func isSpreadsheet(mimeType, objectKey string) bool {
	if mimeType == "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		return true
	}
	return strings.EqualFold(filepath.Ext(objectKey), ".xlsx")
}

func checkSpreadsheetParses(ctx context.Context, objectKey string) error {
	data, err := utils.ReadObjectFromGCS(ctx, objectKey, maxUploadSizeBytes)
	if err != nil {
		return err
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer f.Close()
	if len(f.GetSheetList()) == 0 {
		return fmt.Errorf("workbook has no sheets")
	}
	return nil
}
