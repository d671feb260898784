package openimage

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// makeJPEG returns a valid JPEG of the given dimensions.
func makeJPEG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: 149, B: uint8(y % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		panic("makeJPEG: " + err.Error())
	}
	return buf.Bytes()
}

func newImageServer(t *testing.T, contentType string, body []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDownload_Success(t *testing.T) {
	t.Parallel()

	srv := newImageServer(t, "image/jpeg; charset=binary", makeJPEG(16, 16))

	d := &Downloader{Client: srv.Client()}
	res, err := d.Download(context.Background(), srv.URL+"/image.jpg", DownloadOpts{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.MIMEType != "image/jpeg" {
		t.Errorf("MIMEType = %q, want image/jpeg", res.MIMEType)
	}
	if len(res.Data) == 0 {
		t.Error("Data is empty")
	}
}

func TestDownload_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
		opts    DownloadOpts
	}{
		{
			name: "non-image content type",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				_, _ = w.Write([]byte("<html></html>"))
			},
		},
		{
			name:    "not found",
			handler: func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) },
		},
		{
			name: "smaller than MinBytes",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "image/jpeg")
				_, _ = w.Write([]byte("tiny"))
			},
			opts: DownloadOpts{MinBytes: 100},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			d := &Downloader{Client: srv.Client()}
			res, err := d.Download(context.Background(), srv.URL+"/x.jpg", tc.opts)
			if err == nil {
				t.Errorf("Download() = %v, want error", res)
			}
		})
	}
}

func TestDownload_NotImageSentinel(t *testing.T) {
	t.Parallel()

	srv := newImageServer(t, "text/plain", []byte("hello"))
	d := &Downloader{Client: srv.Client()}
	_, err := d.Download(context.Background(), srv.URL, DownloadOpts{})
	if !errors.Is(err, ErrNotImage) {
		t.Errorf("Download() error = %v, want ErrNotImage", err)
	}
}

func TestDownload_MaxBytesEnforcement(t *testing.T) {
	t.Parallel()

	const maxBytes = 10
	srv := newImageServer(t, "image/png", []byte(strings.Repeat("X", 100)))

	d := &Downloader{Client: srv.Client()}
	res, err := d.Download(context.Background(), srv.URL+"/big.png", DownloadOpts{MaxBytes: maxBytes})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if int64(len(res.Data)) > maxBytes {
		t.Errorf("Data len = %d, want <= %d", len(res.Data), maxBytes)
	}
}

func TestDownload_SendsUserAgent(t *testing.T) {
	t.Parallel()

	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("PNGDATA"))
	}))
	defer srv.Close()

	cfg := &Config{HTTPClient: srv.Client(), UserAgent: "test-agent/1.0"}
	if _, err := cfg.NewDownloader().Download(context.Background(), srv.URL, DownloadOpts{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "test-agent/1.0" {
		t.Errorf("User-Agent = %q, want %q", got, "test-agent/1.0")
	}
}

func TestDownloadImage_Decodes(t *testing.T) {
	t.Parallel()

	srv := newImageServer(t, "image/jpeg", makeJPEG(40, 30))
	d := &Downloader{Client: srv.Client()}
	data, img, err := d.DownloadImage(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(data) == 0 {
		t.Error("raw data is empty")
	}
	if b := img.Bounds(); b.Dx() != 40 || b.Dy() != 30 {
		t.Errorf("decoded bounds = %v, want 40x30", b)
	}
}

func TestDownloadImage_CorruptKeepsBytes(t *testing.T) {
	t.Parallel()

	srv := newImageServer(t, "image/jpeg", []byte("not really a jpeg"))
	d := &Downloader{Client: srv.Client()}
	data, img, err := d.DownloadImage(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected decode error")
	}
	if img != nil {
		t.Error("expected nil image on decode failure")
	}
	if string(data) != "not really a jpeg" {
		t.Errorf("data = %q, want raw bytes preserved", data)
	}
}
