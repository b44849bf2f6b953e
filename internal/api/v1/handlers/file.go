package handlers

import (
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"ghost-crew/pkg/logger"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	maxPhotoSize    = 8 << 20
	thumbnailSize   = 320
	thumbnailPrefix = "thumb_"
)

// validatePhoto checks size, extension and declared content type.
func validatePhoto(file *multipart.FileHeader) error {
	if file.Size > maxPhotoSize {
		return fiber.NewError(fiber.StatusBadRequest, "File size exceeds the limit of 8MB")
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	allowedExts := map[string]bool{".jpg": true, ".jpeg": true, ".png": true}
	if !allowedExts[ext] {
		return fiber.NewError(fiber.StatusBadRequest, "File type not allowed")
	}

	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return fiber.NewError(fiber.StatusBadRequest, "File must be an image")
	}
	return nil
}

// GetFile serves an uploaded photo or thumbnail.
func (h *Handler) GetFile(c *fiber.Ctx) error {
	filename := filepath.Base(c.Params("filename"))
	if filename == "." || filename == "/" || strings.HasPrefix(filename, "..") {
		return fail(c, fiber.StatusBadRequest, "Invalid filename")
	}
	filePath := filepath.Join(h.deps.UploadDir, filename)
	if _, err := os.Stat(filePath); err != nil {
		return fail(c, fiber.StatusNotFound, "File not found")
	}
	return c.SendFile(filePath)
}

// UploadPhoto stores task evidence and a bounded thumbnail for the review screen.
func (h *Handler) UploadPhoto(c *fiber.Ctx) error {
	userID, _ := caller(c)
	uploadDir := h.deps.UploadDir

	if err := os.MkdirAll(uploadDir, os.ModePerm); err != nil {
		logger.ErrorLogger.Error("Error creating upload directory", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "Error creating upload directory")
	}

	// Ambil file dari form-data
	file, err := c.FormFile("photo")
	if err != nil {
		logger.ErrorLogger.Error("Error uploading file", zap.Error(err))
		return fail(c, fiber.StatusBadRequest, "Error uploading file")
	}
	if err := validatePhoto(file); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	newFilename := fmt.Sprintf("%d_%d%s", userID, h.deps.Now().UnixNano(), ext)
	filePath := filepath.Join(uploadDir, newFilename)
	if err := c.SaveFile(file, filePath); err != nil {
		logger.ErrorLogger.Error("Error saving file", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "Error saving file")
	}

	img, err := imaging.Open(filePath, imaging.AutoOrientation(true))
	if err != nil {
		_ = os.Remove(filePath)
		logger.AuditLogger.Warn("Rejected undecodable photo", zap.Int("user_id", userID), zap.Error(err))
		return fail(c, fiber.StatusBadRequest, "File is not a readable image")
	}
	thumbName := thumbnailPrefix + newFilename
	thumb := imaging.Fit(img, thumbnailSize, thumbnailSize, imaging.Lanczos)
	if err := imaging.Save(thumb, filepath.Join(uploadDir, thumbName)); err != nil {
		logger.ErrorLogger.Error("Error saving thumbnail", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "Error saving thumbnail")
	}

	logger.AuditLogger.Info("Photo uploaded", zap.String("filename", newFilename), zap.Int("user_id", userID))
	return respond(c, fiber.StatusCreated, "Photo uploaded successfully", fiber.Map{
		"photo_url":     "/api/v1/upload/" + newFilename,
		"thumbnail_url": "/api/v1/upload/" + thumbName,
		"size":          file.Size,
	})
}
