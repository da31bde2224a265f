// Package images uploads listing photos to a Cloudinary-compatible store.
package images

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	apartmentserrors "aptbook/internal/apartments/errors"
	"aptbook/pkg/client"
	"aptbook/pkg/logger"
)

// Store persists an image and returns its public URL.
type Store interface {
	Upload(ctx context.Context, folder, name string, data []byte) (string, error)
}

type CloudinaryStore struct {
	http      *client.HttpClient
	cloudName string
	apiKey    string
	apiSecret string
	now       func() time.Time
	log       *logger.Logger
}

func NewCloudinaryStore(uploadURL, cloudName, apiKey, apiSecret string, timeout time.Duration, log *logger.Logger) *CloudinaryStore {
	return &CloudinaryStore{
		http:      client.NewHttpClient(uploadURL, timeout),
		cloudName: cloudName,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		now:       time.Now,
		log:       log,
	}
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
}

func (s *CloudinaryStore) Upload(ctx context.Context, folder, name string, data []byte) (string, error) {
	params := map[string]string{
		"folder":    folder,
		"public_id": name,
		"timestamp": strconv.FormatInt(s.now().Unix(), 10),
	}

	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	form.Set("api_key", s.apiKey)
	form.Set("signature", Sign(params, s.apiSecret))
	form.Set("file", "data:"+http.DetectContentType(data)+";base64,"+base64.StdEncoding.EncodeToString(data))

	resp, err := s.http.POSTForm(ctx, "/"+s.cloudName+"/image/upload", form)
	if err != nil {
		s.log.Error("Image upload failed", "folder", folder, "error", err)
		return "", fmt.Errorf("%w: %v", apartmentserrors.ErrImageStoreUnavailable, err)
	}
	if !resp.IsSuccess() {
		msg := client.GetErrorMessage(resp)
		s.log.Warn("Image upload rejected", "folder", folder, "status", resp.StatusCode, "message", msg)
		if resp.StatusCode >= 500 {
			return "", fmt.Errorf("%w: %s", apartmentserrors.ErrImageStoreUnavailable, msg)
		}
		return "", fmt.Errorf("%w: %s", apartmentserrors.ErrImageRejected, msg)
	}

	var out uploadResponse
	if err := resp.DecodeJSON(&out); err != nil || out.SecureURL == "" {
		return "", fmt.Errorf("%w: unreadable upload response", apartmentserrors.ErrImageStoreUnavailable)
	}

	s.log.Info("Image uploaded", "public_id", out.PublicID)
	return out.SecureURL, nil
}

// Sign computes the upload signature: the SHA-1 of the sorted
// "key=value" pairs joined by '&', followed by the API secret.
func Sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}

	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(sum[:])
}
