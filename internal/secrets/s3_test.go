package secrets

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/avrabe/mcp-loxone/internal/core"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]string
	puts    []*s3.PutObjectInput
	failGet error
	failPut error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string]string)}
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet != nil {
		return nil, f.failGet
	}
	v, ok := f.objects[*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(v))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPut != nil {
		return nil, f.failPut
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Key] = string(data)
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3_ImplementsStore(t *testing.T) {
	var _ Store = (*S3)(nil)
}

func TestS3_Key(t *testing.T) {
	tests := []struct {
		prefix string
		name   string
		want   string
	}{
		{"", "SSE_API_KEY", "SSE_API_KEY"},
		{"loxone", "SSE_API_KEY", "loxone/SSE_API_KEY"},
		{"loxone/", "SSE_API_KEY", "loxone/SSE_API_KEY"},
	}

	for _, tt := range tests {
		s := newS3WithClient(nil, "b", tt.prefix)
		got := s.key(tt.name)
		if got != tt.want {
			t.Errorf("key(%q) with prefix %q = %q, want %q", tt.name, tt.prefix, got, tt.want)
		}
	}
}

func TestS3_SetRequestsEncryption(t *testing.T) {
	fake := newFakeS3()
	s := newS3WithClient(fake, "bucket", "p")

	require.NoError(t, s.Set(context.Background(), "SSE_API_KEY", "v"))
	require.Len(t, fake.puts, 1)
	assert.Equal(t, types.ServerSideEncryptionAes256, fake.puts[0].ServerSideEncryption)
	assert.Equal(t, "p/SSE_API_KEY", *fake.puts[0].Key)
}

func TestS3_BackendErrorIsWrapped(t *testing.T) {
	fake := newFakeS3()
	fake.failPut = errors.New("AccessDenied")
	s := newS3WithClient(fake, "bucket", "")

	err := s.Set(context.Background(), "SSE_API_KEY", "v")
	assert.ErrorIs(t, err, core.ErrSecretStore)
}

// responseError builds the error the SDK returns for a failed HTTP
// exchange.
func responseError(status int, requestID string, apiErr error) error {
	return &awshttp.ResponseError{
		ResponseError: &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{Response: &http.Response{StatusCode: status}},
			Err:      apiErr,
		},
		RequestID: requestID,
	}
}

func TestIsS3NotFound(t *testing.T) {
	slowDown := responseError(http.StatusServiceUnavailable, "9F4047A2C1",
		&smithy.GenericAPIError{Code: "SlowDown", Message: "reduce your request rate"})
	require.Contains(t, slowDown.Error(), "404")

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"no such key type", &types.NoSuchKey{}, true},
		{"not found type", &types.NotFound{}, true},
		{"generic NoSuchKey code", &smithy.GenericAPIError{Code: "NoSuchKey"}, true},
		{"generic NotFound code", &smithy.GenericAPIError{Code: "NotFound"}, true},
		{"bare 404 response", responseError(http.StatusNotFound, "abc", errors.New("not found")), true},
		{"503 with 404 in request id", slowDown, false},
		{"access denied code", &smithy.GenericAPIError{Code: "AccessDenied"}, false},
		{"plain text mentioning 404", errors.New("StatusCode: 404"), false},
		{"plain text mentioning NotFound", errors.New("NotFound"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isS3NotFound(tt.err))
		})
	}
}

func TestS3_TransientGetErrorIsNotAbsence(t *testing.T) {
	fake := newFakeS3()
	fake.objects["SSE_API_KEY"] = "stored"
	fake.failGet = responseError(http.StatusServiceUnavailable, "9F4047A2C1",
		&smithy.GenericAPIError{Code: "SlowDown"})
	s := newS3WithClient(fake, "bucket", "")

	_, err := s.Get(context.Background(), "SSE_API_KEY")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrSecretStore)
	assert.NotErrorIs(t, err, core.ErrSecretNotFound)
}
