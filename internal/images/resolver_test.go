package images

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 1x1 transparent PNG
var tinyPNG = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A,
	0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4,
	0x89, 0x00, 0x00, 0x00, 0x0D, 0x49, 0x44, 0x41,
	0x54, 0x78, 0x9C, 0x62, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0D, 0x0A, 0x2D, 0xB4, 0x00,
	0x00, 0x00, 0x00, 0x49, 0x45, 0x4E, 0x44, 0xAE,
	0x42, 0x60, 0x82,
}

func TestDecodeDataURI(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString(tinyPNG)

	tests := []struct {
		name       string
		src        string
		wantFormat string
		wantErr    bool
	}{
		{
			name:       "png data uri",
			src:        "data:image/png;base64," + payload,
			wantFormat: "png",
		},
		{
			name:       "jpeg normalized to jpg",
			src:        "data:image/jpeg;base64," + payload,
			wantFormat: "jpg",
		},
		{
			name:    "missing payload separator",
			src:     "data:image/png;base64",
			wantErr: true,
		},
		{
			name:    "invalid base64",
			src:     "data:image/png;base64,!!!not-base64!!!",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := DecodeDataURI(tt.src)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFormat, img.Format)
			assert.Equal(t, tinyPNG, img.Data)
		})
	}
}

type stubBlobFetcher struct {
	data []byte
	err  error
}

func (s *stubBlobFetcher) FetchBlob(ctx context.Context, blobURL string) ([]byte, error) {
	return s.data, s.err
}

func TestResolveBlob(t *testing.T) {
	t.Run("with fetcher", func(t *testing.T) {
		r := NewResolver(DefaultConfig(), nil, &stubBlobFetcher{data: tinyPNG}, nil)

		img, err := r.Resolve(context.Background(), "blob:https://portal.example.com/abc-123", "https://portal.example.com/kb")
		require.NoError(t, err)
		assert.Equal(t, tinyPNG, img.Data)
		assert.Equal(t, "png", img.Format)
	})

	t.Run("without fetcher", func(t *testing.T) {
		r := NewResolver(DefaultConfig(), nil, nil, nil)

		_, err := r.Resolve(context.Background(), "blob:https://portal.example.com/abc-123", "https://portal.example.com/kb")
		assert.ErrorIs(t, err, ErrNoBlobFetcher)
	})
}

func TestResolveRemote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/img/pic.jpg":
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write(tinyPNG)
		case "/missing.png":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Write(tinyPNG)
		}
	}))
	defer server.Close()

	r := NewResolver(DefaultConfig(), server.Client(), nil, nil)

	t.Run("relative src resolved against base", func(t *testing.T) {
		img, err := r.Resolve(context.Background(), "/img/pic.jpg", server.URL+"/kb_view.do")
		require.NoError(t, err)
		assert.Equal(t, "jpg", img.Format)
		assert.Equal(t, tinyPNG, img.Data)
	})

	t.Run("unknown content type defaults to png", func(t *testing.T) {
		img, err := r.Resolve(context.Background(), server.URL+"/other.bin", server.URL)
		require.NoError(t, err)
		assert.Equal(t, "png", img.Format)
	})

	t.Run("non-2xx is an error", func(t *testing.T) {
		_, err := r.Resolve(context.Background(), "/missing.png", server.URL)
		assert.Error(t, err)
	})

	t.Run("unsupported scheme", func(t *testing.T) {
		_, err := r.Resolve(context.Background(), "ftp://example.com/pic.png", server.URL)
		assert.ErrorIs(t, err, ErrUnsupportedScheme)
	})
}

func TestResolveRemoteSizeLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(make([]byte, 2048))
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.MaxBytes = 1024
	r := NewResolver(cfg, server.Client(), nil, nil)

	_, err := r.Resolve(context.Background(), server.URL+"/big.png", server.URL)
	assert.ErrorContains(t, err, "size limit")
}

func TestFormatFromContentType(t *testing.T) {
	tests := []struct {
		contentType string
		want        string
	}{
		{"image/jpeg", "jpg"},
		{"image/png", "png"},
		{"image/gif", "gif"},
		{"image/webp", "webp"},
		{"image/bmp", "bmp"},
		{"image/tiff", "tif"},
		{"image/png; charset=binary", "png"},
		{"application/octet-stream", "png"},
		{"", "png"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatFromContentType(tt.contentType), tt.contentType)
	}
}
