package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/go-cmp/cmp"

	"github.com/debemdeboas/the-kennel/internal/model"
	"github.com/debemdeboas/the-kennel/internal/staging"
)

const errUnexpected = "Unexpected error: %v"

func TestClient_GetLayout(t *testing.T) {
	var gotPath, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"layoutConfig":[{"type":"hero","title":"Hi","images":["a.jpg"]},{"type":"gallery"}]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second)
	cfg, err := c.GetLayout(context.Background(), "sunny paws")
	if err != nil {
		t.Fatalf(errUnexpected, err)
	}

	if gotPath != "/api/sites/sunny paws/layout" {
		t.Errorf("Unexpected path %s", gotPath)
	}
	if gotAccept != "application/json" {
		t.Errorf("Unexpected Accept header %s", gotAccept)
	}
	if len(cfg.Sections) != 2 {
		t.Fatalf("Expected 2 sections, got %d", len(cfg.Sections))
	}
	if hero := cfg.Views().Hero; hero == nil || hero.Title != "Hi" {
		t.Errorf("Unexpected hero %+v", hero)
	}
	if _, ok := cfg.Sections[1].(model.RawSection); !ok {
		t.Errorf("Expected unknown section to be kept raw, got %T", cfg.Sections[1])
	}
}

func TestClient_GetLayoutNullConfig(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"layoutConfig":null}`)
	}))
	defer srv.Close()

	cfg, err := NewClient(srv.URL, time.Second).GetLayout(context.Background(), "sunny")
	if err != nil {
		t.Fatalf(errUnexpected, err)
	}
	if cfg == nil || len(cfg.Sections) != 0 {
		t.Errorf("Expected an empty config, got %+v", cfg)
	}
}

func TestClient_Errors(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "Not found",
			status: http.StatusNotFound,
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrNotFound) {
					t.Errorf("Expected ErrNotFound, got %v", err)
				}
			},
		},
		{
			name:   "Server error",
			status: http.StatusBadGateway,
			body:   "upstream down\n",
			check: func(t *testing.T, err error) {
				var se *StatusError
				if !errors.As(err, &se) {
					t.Fatalf("Expected StatusError, got %v", err)
				}
				if se.Status != http.StatusBadGateway || se.Body != "upstream down" {
					t.Errorf("Unexpected status error %+v", se)
				}
				if !strings.Contains(se.Error(), "502") {
					t.Errorf("Expected status in message, got %s", se.Error())
				}
			},
		},
		{
			name:   "Garbage body",
			status: http.StatusOK,
			body:   "<html>",
			check: func(t *testing.T, err error) {
				if err == nil || !strings.Contains(err.Error(), "decode response") {
					t.Errorf("Expected decode error, got %v", err)
				}
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, time.Second).GetLayout(context.Background(), "sunny")
			tc.check(t, err)
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	_, err := NewClient(srv.URL, 50*time.Millisecond).GetLayout(context.Background(), "sunny")
	if err == nil {
		t.Fatal("Expected timeout error but got none")
	}
}

func TestClient_PutLayout(t *testing.T) {
	var gotMethod, gotType string
	var gotBody map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		io.WriteString(w, `{"layoutConfig":[{"type":"about","title":"Stored"}]}`)
	}))
	defer srv.Close()

	cfg := &model.LayoutConfig{Sections: []model.Section{&model.AboutSection{Title: "Sent"}}}
	out, err := NewClient(srv.URL, time.Second).PutLayout(context.Background(), "sunny", cfg)
	if err != nil {
		t.Fatalf(errUnexpected, err)
	}

	if gotMethod != http.MethodPut || gotType != "application/json" {
		t.Errorf("Unexpected request %s %s", gotMethod, gotType)
	}
	if string(gotBody["layoutConfig"]) != `[{"type":"about","title":"Sent"}]` {
		t.Errorf("Unexpected request body %s", gotBody["layoutConfig"])
	}
	if out.Views().About.Title != "Stored" {
		t.Errorf("Expected the server's config to be returned, got %+v", out.Views().About)
	}
}

var logoFile = staging.File{Name: "logo.PNG", ContentType: "image/png", Data: []byte("png-bytes")}

func TestPresetUploader_Upload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("Failed to parse multipart form: %v", err)
			return
		}
		if r.FormValue("upload_preset") != "kennel_unsigned" || r.FormValue("folder") != "sunny" {
			t.Errorf("Unexpected form fields %v", r.MultipartForm.Value)
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("Missing file part: %v", err)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "logo.PNG" || string(data) != "png-bytes" {
			t.Errorf("Unexpected file part %s %q", header.Filename, data)
		}
		if header.Header.Get("Content-Type") != "image/png" {
			t.Errorf("Unexpected part content type %s", header.Header.Get("Content-Type"))
		}

		io.WriteString(w, `{"secure_url":"https://cdn.example/sunny/logo.png","url":"http://cdn.example/sunny/logo.png"}`)
	}))
	defer srv.Close()

	u := NewPresetUploader(srv.URL, "kennel_unsigned", time.Second)
	url, err := u.Upload(context.Background(), "sunny", logoFile)
	if err != nil {
		t.Fatalf(errUnexpected, err)
	}
	if url != "https://cdn.example/sunny/logo.png" {
		t.Errorf("Expected secure url, got %s", url)
	}
}

func TestPresetUploader_Errors(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{name: "Provider error", status: http.StatusOK, body: `{"error":{"message":"Upload preset not found"}}`, want: "Upload preset not found"},
		{name: "No url", status: http.StatusOK, body: `{}`, want: "no url"},
		{name: "HTTP error", status: http.StatusUnauthorized, body: "denied", want: "http 401"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			_, err := NewPresetUploader(srv.URL, "p", time.Second).Upload(context.Background(), "sunny", logoFile)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

type fakePutObject struct {
	in  *s3.PutObjectInput
	err error
}

func (f *fakePutObject) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3Uploader_Upload(t *testing.T) {
	api := &fakePutObject{}
	u := newS3Uploader(api, "kennel-assets", "/sites/", "https://assets.example/", time.Second)

	url, err := u.Upload(context.Background(), "sunny", logoFile)
	if err != nil {
		t.Fatalf(errUnexpected, err)
	}

	key := *api.in.Key
	if !strings.HasPrefix(key, "sites/sunny/") || !strings.HasSuffix(key, ".png") {
		t.Errorf("Unexpected object key %s", key)
	}
	if url != "https://assets.example/"+key {
		t.Errorf("Unexpected public url %s", url)
	}

	got := struct {
		Bucket, ContentType string
		Length              int64
	}{*api.in.Bucket, *api.in.ContentType, *api.in.ContentLength}
	want := struct {
		Bucket, ContentType string
		Length              int64
	}{"kennel-assets", "image/png", int64(len(logoFile.Data))}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("PutObject input mismatch (-want +got):\n%s", diff)
	}
}

func TestS3Uploader_Error(t *testing.T) {
	api := &fakePutObject{err: errors.New("access denied")}
	u := newS3Uploader(api, "b", "", "https://assets.example", time.Second)

	if _, err := u.Upload(context.Background(), "sunny", logoFile); err == nil || !strings.Contains(err.Error(), "access denied") {
		t.Errorf("Expected access denied, got %v", err)
	}
}

// stalledPutObject blocks until the request context is done.
type stalledPutObject struct{}

func (stalledPutObject) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestS3Uploader_Timeout(t *testing.T) {
	u := newS3Uploader(stalledPutObject{}, "b", "", "https://assets.example", 50*time.Millisecond)

	done := make(chan error, 1)
	go func() {
		_, err := u.Upload(context.Background(), "sunny", logoFile)
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Expected %v, got %v", context.DeadlineExceeded, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected the upload to time out")
	}
}

func TestS3Uploader_ObjectKeyDropsOddExtensions(t *testing.T) {
	u := newS3Uploader(&fakePutObject{}, "b", "", "", time.Second)

	testCases := map[string]string{
		"photo.JPG":           ".jpg",
		"noext":               "",
		"weird.extension-abc": "",
	}
	for name, ext := range testCases {
		key := u.objectKey("sunny", name)
		if !strings.HasPrefix(key, "sunny/") {
			t.Errorf("%s: unexpected key %s", name, key)
		}
		base := strings.TrimPrefix(key, "sunny/")
		if got := strings.TrimPrefix(base, base[:36]); got != ext {
			t.Errorf("%s: expected extension %q, got %q", name, ext, got)
		}
	}
}
