package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/core/batch"
	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/core/export"
	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/core/ocr"
	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/core/upload"
	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/modules/app"
)

// OCRHandler exposes the batch tool over HTTP
type OCRHandler struct {
	app     *app.App
	inbox   *upload.Inbox
	baseCtx context.Context
}

// NewOCRHandler creates a handler. Batches run under baseCtx, not the request context.
// inbox may be nil, in which case uploads are disabled.
func NewOCRHandler(baseCtx context.Context, a *app.App, inbox *upload.Inbox) *OCRHandler {
	return &OCRHandler{app: a, inbox: inbox, baseCtx: baseCtx}
}

// Register mounts every route on router
func (h *OCRHandler) Register(router fiber.Router) {
	router.Get("/health", h.GetHealth)

	router.Get("/files", h.ListFiles)
	router.Post("/files", h.AddFiles)
	router.Delete("/files", h.ClearFiles)
	if h.inbox != nil {
		router.Post("/upload", h.UploadFiles)
		router.Delete("/upload/:name", h.DeleteUpload)
	}

	router.Get("/options", h.GetOptions)
	router.Put("/options", h.UpdateOptions)

	router.Post("/process", h.Process)
	router.Get("/status", h.GetStatus)

	router.Get("/log", h.GetLog)
	router.Delete("/log", h.ClearLog)

	router.Get("/outputs", h.GetOutputs)
	router.Get("/outputs/:ref", h.DownloadOutput)
}

// GetHealth godoc
// @Summary Service health check
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *OCRHandler) GetHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":            "ok",
		"service":           "ocr-server",
		"supported_formats": ocr.SupportedExtensions(),
		"output_formats":    export.Formats,
	})
}

// AddFilesRequest is the body of POST /files
type AddFilesRequest struct {
	Paths []string `json:"paths"`
}

// ListFiles godoc
// @Summary List selected files
// @Tags Files
// @Produce json
// @Router /files [get]
func (h *OCRHandler) ListFiles(c *fiber.Ctx) error {
	files := h.app.Files()
	return c.JSON(fiber.Map{
		"files": files,
		"count": len(files),
	})
}

// AddFiles godoc
// @Summary Add files to the selection
// @Description Directories, missing files and unsupported types are skipped; duplicates are ignored
// @Tags Files
// @Accept json
// @Produce json
// @Param body body AddFilesRequest true "Paths to add"
// @Router /files [post]
func (h *OCRHandler) AddFiles(c *fiber.Ctx) error {
	var req AddFilesRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}
	if len(req.Paths) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "paths is required"})
	}

	added := h.app.AddFiles(req.Paths)
	return c.JSON(fiber.Map{
		"added": added,
		"count": len(h.app.Files()),
	})
}

// UploadFiles godoc
// @Summary Upload documents and add them to the selection
// @Description Stores each "file" form part in the upload inbox; outputs are written beside the stored copy
// @Tags Files
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Documents to upload"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /upload [post]
func (h *OCRHandler) UploadFiles(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil || len(form.File["file"]) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No file uploaded"})
	}

	var (
		stored   []*upload.Result
		paths    []string
		rejected []fiber.Map
	)
	for _, fileHeader := range form.File["file"] {
		result, err := h.inbox.SaveMultipart(fileHeader)
		if err != nil {
			log.Warn().Err(err).Str("file", fileHeader.Filename).Msg("⚠️ Upload rejected")
			rejected = append(rejected, fiber.Map{"file": fileHeader.Filename, "error": err.Error()})
			continue
		}
		stored = append(stored, result)
		paths = append(paths, result.Path)
	}

	if len(stored) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No supported files uploaded", "rejected": rejected})
	}

	added := h.app.AddFiles(paths)
	return c.JSON(fiber.Map{
		"uploaded": stored,
		"rejected": rejected,
		"added":    added,
		"count":    len(h.app.Files()),
	})
}

// DeleteUpload godoc
// @Summary Delete an uploaded document
// @Description Removes the stored copy from the inbox and drops it from the selection
// @Tags Files
// @Produce json
// @Param name path string true "Stored file name"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /upload/{name} [delete]
func (h *OCRHandler) DeleteUpload(c *fiber.Ctx) error {
	name := c.Params("name")
	if name == "" || name != filepath.Base(name) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid file name"})
	}
	if h.app.Runner().Running() {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": batch.ErrBatchRunning.Error()})
	}

	path := filepath.Join(h.inbox.Dir(), name)
	if err := h.inbox.Delete(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		log.Error().Err(err).Str("file", name).Msg("❌ Failed to delete upload")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	removed := h.app.RemoveFile(path)
	return c.JSON(fiber.Map{
		"deleted":  name,
		"selected": removed,
		"count":    len(h.app.Files()),
	})
}

// ClearFiles godoc
// @Summary Clear the selection
// @Tags Files
// @Router /files [delete]
func (h *OCRHandler) ClearFiles(c *fiber.Ctx) error {
	h.app.ClearFiles()
	return c.JSON(fiber.Map{"message": "Cleared all files"})
}

// UpdateOptionsRequest is the body of PUT /options. Omitted fields keep their value.
type UpdateOptionsRequest struct {
	Format        *string `json:"format"`
	IncludeImages *bool   `json:"include_images"`
	ImageLimit    *int    `json:"image_limit"`
	APIKey        *string `json:"api_key"`
}

// GetOptions godoc
// @Summary Current processing options
// @Tags Options
// @Produce json
// @Router /options [get]
func (h *OCRHandler) GetOptions(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"options":     h.app.Options(),
		"has_api_key": h.app.HasAPIKey(),
	})
}

// UpdateOptions godoc
// @Summary Update processing options
// @Tags Options
// @Accept json
// @Produce json
// @Param body body UpdateOptionsRequest true "Options"
// @Router /options [put]
func (h *OCRHandler) UpdateOptions(c *fiber.Ctx) error {
	var req UpdateOptionsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}

	opts := h.app.Options()
	if req.Format != nil {
		opts.Format = export.Format(*req.Format)
	}
	if req.IncludeImages != nil {
		opts.IncludeImages = *req.IncludeImages
	}
	if req.ImageLimit != nil {
		opts.ImageLimit = *req.ImageLimit
	}
	if err := h.app.SetOptions(opts); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if req.APIKey != nil {
		h.app.SetAPIKey(*req.APIKey)
	}

	return c.JSON(fiber.Map{
		"options":     h.app.Options(),
		"has_api_key": h.app.HasAPIKey(),
	})
}

// Process godoc
// @Summary Start processing the selected files
// @Description Returns 202 with the run id; 409 while another batch is running
// @Tags Processing
// @Produce json
// @Success 202 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /process [post]
func (h *OCRHandler) Process(c *fiber.Ctx) error {
	runID, err := h.app.Process(h.baseCtx)
	switch {
	case errors.Is(err, app.ErrNoAPIKey), errors.Is(err, app.ErrNoFiles):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, batch.ErrBatchRunning):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		log.Error().Err(err).Msg("❌ Failed to start batch")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"run_id": runID.String(),
		"files":  len(h.app.Files()),
	})
}

// GetStatus godoc
// @Summary Run status
// @Tags Processing
// @Produce json
// @Router /status [get]
func (h *OCRHandler) GetStatus(c *fiber.Ctx) error {
	return c.JSON(h.app.Status())
}

// GetLog godoc
// @Summary Activity log
// @Tags Log
// @Produce json
// @Router /log [get]
func (h *OCRHandler) GetLog(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"entries": h.app.Log()})
}

// ClearLog godoc
// @Summary Clear the activity log
// @Tags Log
// @Router /log [delete]
func (h *OCRHandler) ClearLog(c *fiber.Ctx) error {
	h.app.ClearLog()
	return c.JSON(fiber.Map{"message": "Log cleared"})
}

// GetOutputs godoc
// @Summary Recently written outputs, newest last
// @Tags Processing
// @Produce json
// @Router /outputs [get]
func (h *OCRHandler) GetOutputs(c *fiber.Ctx) error {
	outputs := h.app.Outputs()
	return c.JSON(fiber.Map{
		"outputs": outputs,
		"count":   len(outputs),
	})
}

// DownloadOutput godoc
// @Summary Download an output file
// @Description ref is an index into GET /outputs or "last" for the newest output
// @Tags Processing
// @Produce octet-stream
// @Param ref path string true "Output index or last"
// @Success 200 {file} file
// @Failure 404 {object} map[string]string
// @Router /outputs/{ref} [get]
func (h *OCRHandler) DownloadOutput(c *fiber.Ctx) error {
	path, contentType, err := h.app.OutputFile(c.Params("ref"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "output file no longer exists"})
		}
		log.Error().Err(err).Str("path", path).Msg("❌ Failed to read output")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to read output"})
	}

	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	return c.Send(data)
}
