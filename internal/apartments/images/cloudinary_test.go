package images

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apartmentserrors "aptbook/internal/apartments/errors"
	"aptbook/pkg/logger"
)

func TestSign(t *testing.T) {
	// reference vector from the upload API documentation
	got := Sign(map[string]string{"eager": "w_400,h_300,c_pad|w_260,h_200,c_crop", "public_id": "sample_image", "timestamp": "1315060510"}, "abcd")
	if got != "bfd09f95f331f558cbd1320e67aa8d488770583e" {
		t.Errorf("Sign() = %s", got)
	}

	if Sign(map[string]string{"a": "1", "b": ""}, "s") != Sign(map[string]string{"a": "1"}, "s") {
		t.Error("empty params must not take part in the signature")
	}
}

func TestUpload(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")

	tests := []struct {
		name    string
		status  int
		body    string
		wantURL string
		wantErr error
	}{
		{"stored", http.StatusOK, `{"secure_url":"https://cdn/x.png","public_id":"apartments/a1/x"}`, "https://cdn/x.png", nil},
		{"rejected", http.StatusBadRequest, `{"error":{"message":"Invalid image file"}}`, "", apartmentserrors.ErrImageRejected},
		{"down", http.StatusBadGateway, `{}`, "", apartmentserrors.ErrImageStoreUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath string
			var gotFile, gotSig, gotKey string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				_ = r.ParseForm()
				gotFile, gotSig, gotKey = r.PostForm.Get("file"), r.PostForm.Get("signature"), r.PostForm.Get("api_key")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			store := NewCloudinaryStore(srv.URL, "demo", "key", "secret", time.Second, logger.Discard())
			store.now = func() time.Time { return time.Unix(1700000000, 0) }

			url, err := store.Upload(context.Background(), "apartments/a1", "x", png)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Upload() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil || url != tt.wantURL {
				t.Fatalf("Upload() = %q, %v", url, err)
			}
			if gotPath != "/demo/image/upload" || gotKey != "key" {
				t.Errorf("path = %s, api_key = %s", gotPath, gotKey)
			}
			if !strings.HasPrefix(gotFile, "data:image/png;base64,") {
				t.Errorf("file = %.40s", gotFile)
			}
			want := Sign(map[string]string{"folder": "apartments/a1", "public_id": "x", "timestamp": "1700000000"}, "secret")
			if gotSig != want {
				t.Errorf("signature = %s, want %s", gotSig, want)
			}
		})
	}
}
