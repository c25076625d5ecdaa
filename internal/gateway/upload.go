package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/debemdeboas/the-kennel/internal/model"
	"github.com/debemdeboas/the-kennel/internal/staging"
)

// PresetUploader posts files to an unsigned upload endpoint that authorizes them with an
// upload preset name.
type PresetUploader struct {
	endpoint string
	preset   string
	http     *http.Client
}

func NewPresetUploader(endpoint, preset string, timeout time.Duration) *PresetUploader {
	return &PresetUploader{
		endpoint: endpoint,
		preset:   preset,
		http:     &http.Client{Timeout: timeout},
	}
}

type presetResponse struct {
	SecureURL string `json:"secure_url"`
	URL       string `json:"url"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (u *PresetUploader) Upload(ctx context.Context, owner model.OwnerID, f staging.File) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("upload_preset", u.preset); err != nil {
		return "", err
	}
	if err := mw.WriteField("folder", string(owner)); err != nil {
		return "", err
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(f.Name)))
	header.Set("Content-Type", f.ContentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(f.Data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := u.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", f.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &StatusError{Op: "upload " + f.Name, Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	var out presetResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("upload %s: decode response: %w", f.Name, err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("upload %s: %s", f.Name, out.Error.Message)
	}

	switch {
	case out.SecureURL != "":
		return out.SecureURL, nil
	case out.URL != "":
		return out.URL, nil
	default:
		return "", fmt.Errorf("upload %s: response carried no url", f.Name)
	}
}

type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader stores images in an S3-compatible bucket that is published under publicBaseURL.
// Each PutObject is bounded by timeout.
type S3Uploader struct {
	client        putObjectAPI
	bucket        string
	prefix        string
	publicBaseURL string
	timeout       time.Duration
}

// NewS3Uploader builds the client the same way for AWS and for S3-compatible hosts: static
// credentials and an optional endpoint override.
func NewS3Uploader(ctx context.Context, accessKeyID, accessKeySecret, region, endpoint, bucket, prefix, publicBaseURL string, timeout time.Duration) (*S3Uploader, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, accessKeySecret, "")),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("load s3 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Uploader(client, bucket, prefix, publicBaseURL, timeout), nil
}

func newS3Uploader(client putObjectAPI, bucket, prefix, publicBaseURL string, timeout time.Duration) *S3Uploader {
	return &S3Uploader{
		client:        client,
		bucket:        bucket,
		prefix:        strings.Trim(prefix, "/"),
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		timeout:       timeout,
	}
}

func (u *S3Uploader) objectKey(owner model.OwnerID, name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) > 8 || strings.ContainsAny(ext, `/\ `) {
		ext = ""
	}
	return path.Join(u.prefix, string(owner), uuid.New().String()+ext)
}

func (u *S3Uploader) Upload(ctx context.Context, owner model.OwnerID, f staging.File) (string, error) {
	key := u.objectKey(owner, f.Name)

	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(f.Data),
		ContentType:   aws.String(f.ContentType),
		ContentLength: aws.Int64(int64(len(f.Data))),
		CacheControl:  aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}

	gatewayLogger.Debug().Str("bucket", u.bucket).Str("key", key).Msg("Image stored")
	return u.publicBaseURL + "/" + key, nil
}
