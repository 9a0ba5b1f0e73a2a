package s3infra

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockS3 struct{ mock.Mock }

func (m *mockS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.PutObjectOutput)
	return out, args.Error(1)
}

func (m *mockS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.DeleteObjectOutput)
	return out, args.Error(1)
}

func TestUpload_ReturnsURL(t *testing.T) {
	client := &mockS3{}
	client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return aws.ToString(in.Bucket) == "pics" &&
			aws.ToString(in.Key) == "profile-pics/u1/a.png" &&
			aws.ToString(in.ContentType) == "image/png" &&
			aws.ToInt64(in.ContentLength) == 3
	})).Return(&s3.PutObjectOutput{}, nil).Twice()

	s := &Store{client: client, bucket: "pics"}
	url, err := s.Upload(context.Background(), "profile-pics/u1/a.png", strings.NewReader("png"), 3, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "s3://pics/profile-pics/u1/a.png", url)

	s.publicBaseURL = "https://cdn.example"
	url, err = s.Upload(context.Background(), "profile-pics/u1/a.png", strings.NewReader("png"), 3, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/profile-pics/u1/a.png", url)
}

func TestUpload_Error(t *testing.T) {
	client := &mockS3{}
	boom := errors.New("access denied")
	client.On("PutObject", mock.Anything, mock.Anything).Return(nil, boom)

	s := &Store{client: client, bucket: "pics"}
	_, err := s.Upload(context.Background(), "k", strings.NewReader(""), 0, "image/png")
	assert.ErrorIs(t, err, boom)
}

func TestDelete(t *testing.T) {
	client := &mockS3{}
	client.On("DeleteObject", mock.Anything, mock.MatchedBy(func(in *s3.DeleteObjectInput) bool {
		return aws.ToString(in.Key) == "k"
	})).Return(&s3.DeleteObjectOutput{}, nil)

	s := &Store{client: client, bucket: "pics"}
	assert.NoError(t, s.Delete(context.Background(), "k"))
	client.AssertExpectations(t)
}
