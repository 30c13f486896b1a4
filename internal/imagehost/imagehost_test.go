package imagehost

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/domain"
)

// minimal PNG signature so content sniffing reports image/png
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 16)...)

func TestImgBB_Upload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "k-123", r.PostForm.Get("key"))
		assert.Equal(t, "funny-dog", r.PostForm.Get("name"))
		assert.Equal(t, base64.StdEncoding.EncodeToString(pngBytes), r.PostForm.Get("image"))

		_, _ = w.Write([]byte(`{"success":true,"status":200,"data":{"url":"https://i.ibb.co/x/funny-dog.png"}}`))
	}))
	defer srv.Close()

	up, err := NewImgBB(ImgBBConfig{APIKey: "k-123", URL: srv.URL})
	require.NoError(t, err)

	u, err := up.Upload(context.Background(), "funny-dog", pngBytes)
	require.NoError(t, err)
	assert.Equal(t, "https://i.ibb.co/x/funny-dog.png", u)
}

func TestImgBB_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "rejected", status: http.StatusBadRequest, body: `{"error":{"message":"Invalid API v1 key."}}`},
		{name: "missing url", status: http.StatusOK, body: `{"success":true,"data":{}}`, wantErr: domain.ErrMissingField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			up, err := NewImgBB(ImgBBConfig{APIKey: "k", URL: srv.URL})
			require.NoError(t, err)

			_, err = up.Upload(context.Background(), "x", pngBytes)
			require.Error(t, err)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			var ue *domain.UpstreamError
			require.True(t, errors.As(err, &ue))
			assert.Equal(t, tt.status, ue.StatusCode)
			assert.Contains(t, ue.Body, "Invalid API v1 key")
		})
	}
}

func TestImgBB_RequiresKeyAndData(t *testing.T) {
	_, err := NewImgBB(ImgBBConfig{})
	assert.ErrorIs(t, err, ErrNotConfigured)

	up, err := NewImgBB(ImgBBConfig{APIKey: "k"})
	require.NoError(t, err)
	_, err = up.Upload(context.Background(), "x", nil)
	assert.ErrorIs(t, err, ErrEmptyImage)
}

type fakePutter struct {
	in   *s3.PutObjectInput
	body []byte
	err  error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	f.body, _ = io.ReadAll(in.Body)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func newTestS3(t *testing.T, cfg S3Config, p *fakePutter) *S3 {
	t.Helper()

	cfg.AccessKey = "ak"
	cfg.SecretKey = "sk"
	s, err := NewS3(context.Background(), cfg, withPutter(p))
	require.NoError(t, err)
	return s
}

func TestS3_Upload(t *testing.T) {
	p := &fakePutter{}
	s := newTestS3(t, S3Config{
		Endpoint:      "http://localhost:9000",
		Bucket:        "images",
		Prefix:        "/listings/",
		PublicBaseURL: "https://cdn.example.com/",
	}, p)

	u, err := s.Upload(context.Background(), "uploads/funny-dog.png", pngBytes)
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/listings/funny-dog.png", u)
	assert.Equal(t, "images", aws.ToString(p.in.Bucket))
	assert.Equal(t, "listings/funny-dog.png", aws.ToString(p.in.Key))
	assert.Equal(t, "image/png", aws.ToString(p.in.ContentType))
	assert.Equal(t, pngBytes, p.body)
}

func TestS3_PublicURLFallsBackToEndpoint(t *testing.T) {
	s := newTestS3(t, S3Config{Endpoint: "http://minio:9000/", Bucket: "images"}, &fakePutter{})

	u, err := s.Upload(context.Background(), "a.png", pngBytes)
	require.NoError(t, err)
	assert.Equal(t, "http://minio:9000/images/a.png", u)
}

func TestS3_PutFailure(t *testing.T) {
	boom := errors.New("connection refused")
	s := newTestS3(t, S3Config{Bucket: "images"}, &fakePutter{err: boom})

	_, err := s.Upload(context.Background(), "a.png", pngBytes)
	assert.ErrorIs(t, err, boom)
}

func TestNew_SelectsBackend(t *testing.T) {
	up, err := New(context.Background(), FactoryConfig{Backend: "imgbb", ImgBB: ImgBBConfig{APIKey: "k"}}, nil)
	require.NoError(t, err)
	assert.IsType(t, &ImgBB{}, up)

	up, err = New(context.Background(), FactoryConfig{
		Backend: "S3",
		S3:      S3Config{Bucket: "b", AccessKey: "ak", SecretKey: "sk"},
	}, nil)
	require.NoError(t, err)
	assert.IsType(t, &S3{}, up)

	_, err = New(context.Background(), FactoryConfig{Backend: "ftp"}, nil)
	assert.ErrorIs(t, err, ErrUnknownBackend)

	_, err = New(context.Background(), FactoryConfig{Backend: "s3"}, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}
