package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/petermazzocco/vitalarbor-api/internal/auth"
	"github.com/petermazzocco/vitalarbor-api/internal/images"
	"github.com/petermazzocco/vitalarbor-api/models"
)

type ImagePipeline interface {
	Upload(ctx context.Context, username, password string, in images.UploadInput) (*images.UploadResult, error)
	Process(ctx context.Context, username, password, filename string) (*models.ProcessingResult, error)
	List(ctx context.Context, username, password string) ([]models.Image, error)
}

func UploadImageHandler(w http.ResponseWriter, r *http.Request, pipeline ImagePipeline) {
	creds, ok := auth.FromContext(r.Context())
	if !ok {
		MissingCredentials(w, r, nil)
		return
	}

	// Parse multipart form
	file, header, err := r.FormFile("image")
	if err != nil {
		badRequest(w, "No image file provided")
		return
	}
	defer file.Close()

	// One byte past the limit is enough to tell the file is too large.
	data, err := io.ReadAll(io.LimitReader(file, images.MaxImageSize+1))
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := pipeline.Upload(r.Context(), creds.Username, creds.Password, images.UploadInput{
		Filename: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Data:     data,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Upload successful",
		"imageUrl": res.URL,
		"filename": res.Filename,
	})
}

func ListImagesHandler(w http.ResponseWriter, r *http.Request, pipeline ImagePipeline) {
	creds, ok := auth.FromContext(r.Context())
	if !ok {
		MissingCredentials(w, r, nil)
		return
	}

	imgs, err := pipeline.List(r.Context(), creds.Username, creds.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Images loaded successfully",
		"images":  imgs,
	})
}

func ProcessImageHandler(w http.ResponseWriter, r *http.Request, pipeline ImagePipeline) {
	creds, ok := auth.FromContext(r.Context())
	if !ok {
		MissingCredentials(w, r, nil)
		return
	}

	filename := r.FormValue("filename")
	if filename == "" && r.Body != nil {
		var body struct {
			Filename string `json:"filename"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			filename = body.Filename
		}
	}
	if filename == "" {
		badRequest(w, "Username, password, and filename required")
		return
	}

	results, err := pipeline.Process(r.Context(), creds.Username, creds.Password, filename)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Processing complete",
		"results": results,
	})
}
