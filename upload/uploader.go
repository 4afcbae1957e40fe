// Package upload pushes finished videos to the CDN. When no CDN is
// configured the local output path is served directly instead.
package upload

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

type Uploader struct {
	cloudName string
	apiKey    string
	apiSecret string
	http      *http.Client
	logger    *zap.Logger
}

func NewUploader(cloudName, apiKey, apiSecret string, logger *zap.Logger) *Uploader {
	return &Uploader{
		cloudName: cloudName,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		http:      &http.Client{Timeout: 300 * time.Second},
		logger:    logger,
	}
}

// Configured reports whether CDN credentials are present.
func (u *Uploader) Configured() bool {
	return u.cloudName != "" && u.apiKey != "" && u.apiSecret != ""
}

// Upload sends a finished video to the CDN and returns its public URL.
// When the CDN is not configured, it falls back to a local outputs path.
func (u *Uploader) Upload(ctx context.Context, filePath, jobID string) (string, error) {
	return u.upload(ctx, filePath, "videogen/"+jobID, "video")
}

// UploadImage sends an image asset (continuity frame, thumbnail) to the
// CDN under the given public id.
func (u *Uploader) UploadImage(ctx context.Context, filePath, publicID string) (string, error) {
	return u.upload(ctx, filePath, "videogen/"+publicID, "image")
}

func (u *Uploader) upload(ctx context.Context, filePath, publicID, resourceType string) (string, error) {
	if !u.Configured() {
		local := "/outputs/" + filepath.Base(filePath)
		u.logger.Warn("CDN not configured, serving locally", zap.String("url", local))
		return local, nil
	}

	timestamp := time.Now().Unix()
	signature := u.sign(publicID, timestamp)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	part, err := writer.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", err
	}

	fields := map[string]string{
		"public_id": publicID,
		"timestamp": fmt.Sprintf("%d", timestamp),
		"signature": signature,
		"api_key":   u.apiKey,
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return "", err
		}
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("https://api.cloudinary.com/v1_1/%s/%s/upload", u.cloudName, resourceType)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := u.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("upload failed: status %d: %s", resp.StatusCode, detail)
	}

	var result struct {
		SecureURL string `json:"secure_url"`
		URL       string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	if result.SecureURL != "" {
		return result.SecureURL, nil
	}
	if result.URL != "" {
		return result.URL, nil
	}
	return "", fmt.Errorf("upload response contained no URL")
}

func (u *Uploader) sign(publicID string, timestamp int64) string {
	payload := fmt.Sprintf("public_id=%s&timestamp=%d%s", publicID, timestamp, u.apiSecret)
	sum := sha1.Sum([]byte(payload))
	return hex.EncodeToString(sum[:])
}
