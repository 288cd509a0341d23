// Package storage is the HTTP client for the file-storage sibling
// service. Uploads and deletes are authenticated with a shared token
// passed as a query parameter; failures surface as upstream errors.
package storage

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/openworkshop/owapi/config"
)

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: cfg.StorageUrl,
		token:   cfg.StorageToken,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// Upload stores a file under kind/path ("avatar/7.png", "mods/3/main.zip").
func (c *Client) Upload(kind, path string, file io.Reader) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", path)
	if err != nil {
		return fmt.Errorf("failed to build upload body: %v", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("failed to read upload file: %v", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish upload body: %v", err)
	}

	uploadURL := fmt.Sprintf("%s/upload/%s/%s?token=%s", c.baseURL, kind, url.PathEscape(path), url.QueryEscape(c.token))
	req, err := http.NewRequest(http.MethodPost, uploadURL, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("storage upload failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("storage upload failed: status %d", resp.StatusCode)
	}
	return nil
}

// Delete removes a stored file. Missing files are not an error.
func (c *Client) Delete(kind, path string) error {
	deleteURL := fmt.Sprintf("%s/delete/%s/%s?token=%s", c.baseURL, kind, url.PathEscape(path), url.QueryEscape(c.token))
	req, err := http.NewRequest(http.MethodDelete, deleteURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("storage delete failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound && (resp.StatusCode < 200 || resp.StatusCode >= 300) {
		return fmt.Errorf("storage delete failed: status %d", resp.StatusCode)
	}
	return nil
}

// DownloadURL is the public redirect target for a stored mod archive.
func (c *Client) DownloadURL(modID int64) string {
	return fmt.Sprintf("%s/download/mods/%d/main.zip", c.baseURL, modID)
}

// AvatarURL is the public address of a locally stored avatar.
func (c *Client) AvatarURL(userID int64, ext string) string {
	return fmt.Sprintf("%s/img/avatar/%d.%s", c.baseURL, userID, ext)
}

// PublicURL is the public address of any stored file.
func (c *Client) PublicURL(kind, path string) string {
	return fmt.Sprintf("%s/img/%s/%s", c.baseURL, kind, path)
}
