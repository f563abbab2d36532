package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// fakeObjectClient records S3 calls and returns configured errors
type fakeObjectClient struct {
	putErr    error
	deleteErr error
	headErr   error

	putKeys     []string
	deletedKeys []string
}

func (c *fakeObjectClient) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if c.putErr != nil {
		return nil, c.putErr
	}
	c.putKeys = append(c.putKeys, aws.ToString(params.Key))
	return &s3.PutObjectOutput{}, nil
}

func (c *fakeObjectClient) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if c.deleteErr != nil {
		return nil, c.deleteErr
	}
	c.deletedKeys = append(c.deletedKeys, aws.ToString(params.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (c *fakeObjectClient) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if c.headErr != nil {
		return nil, c.headErr
	}
	return &s3.HeadBucketOutput{}, nil
}

func (c *fakeObjectClient) CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	return &s3.CreateBucketOutput{}, nil
}

// fakePresigner returns a canned URL or error
type fakePresigner struct {
	url string
	err error
}

func (p *fakePresigner) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &v4.PresignedHTTPRequest{URL: p.url}, nil
}

func newTestService(client *fakeObjectClient, presigner *fakePresigner) *service {
	return &service{
		client:     client,
		presigner:  presigner,
		bucketName: "labels-test",
	}
}

func TestSaveLabelPhoto(t *testing.T) {
	client := &fakeObjectClient{}
	svc := newTestService(client, &fakePresigner{url: "https://minio.local/labels-test/labels/a.png"})

	url, err := svc.SaveLabelPhoto(context.Background(), "labels/a.png", "image/png", []byte("photo"))
	if err != nil {
		t.Fatalf("SaveLabelPhoto returned error: %v", err)
	}
	if url != "https://minio.local/labels-test/labels/a.png" {
		t.Errorf("unexpected URL %q", url)
	}
	if len(client.putKeys) != 1 || client.putKeys[0] != "labels/a.png" {
		t.Errorf("expected one uploaded object, got %v", client.putKeys)
	}
}

func TestSaveLabelPhoto_ValidatesInput(t *testing.T) {
	svc := newTestService(&fakeObjectClient{}, &fakePresigner{url: "u"})
	ctx := context.Background()

	if _, err := svc.SaveLabelPhoto(ctx, "", "image/png", []byte("x")); err == nil {
		t.Error("empty key should be rejected")
	}
	if _, err := svc.SaveLabelPhoto(ctx, "k", "", []byte("x")); err == nil {
		t.Error("empty content type should be rejected")
	}
	if _, err := svc.SaveLabelPhoto(ctx, "k", "image/png", nil); err == nil {
		t.Error("empty data should be rejected")
	}
}

func TestSaveLabelPhoto_PresignFailureCleansUpUpload(t *testing.T) {
	client := &fakeObjectClient{}
	svc := newTestService(client, &fakePresigner{err: errors.New("signer unavailable")})

	_, err := svc.SaveLabelPhoto(context.Background(), "labels/a.png", "image/png", []byte("photo"))
	if err == nil {
		t.Fatal("expected error when presigning fails")
	}
	if len(client.deletedKeys) != 1 || client.deletedKeys[0] != "labels/a.png" {
		t.Errorf("unreachable upload should be deleted, got %v", client.deletedKeys)
	}
}

func TestSaveLabelPhoto_UploadFailure(t *testing.T) {
	client := &fakeObjectClient{putErr: errors.New("bucket gone")}
	svc := newTestService(client, &fakePresigner{url: "u"})

	if _, err := svc.SaveLabelPhoto(context.Background(), "k", "image/png", []byte("x")); err == nil {
		t.Fatal("expected error when the upload fails")
	}
	if len(client.deletedKeys) != 0 {
		t.Errorf("nothing to clean up when the upload never happened, got %v", client.deletedKeys)
	}
}

func TestDeleteLabelPhoto(t *testing.T) {
	client := &fakeObjectClient{}
	svc := newTestService(client, &fakePresigner{url: "u"})
	ctx := context.Background()

	if err := svc.DeleteLabelPhoto(ctx, ""); err == nil {
		t.Error("empty key should be rejected")
	}
	if err := svc.DeleteLabelPhoto(ctx, "labels/a.png"); err != nil {
		t.Fatalf("DeleteLabelPhoto returned error: %v", err)
	}
	if len(client.deletedKeys) != 1 || client.deletedKeys[0] != "labels/a.png" {
		t.Errorf("expected one deleted object, got %v", client.deletedKeys)
	}
}

func TestHealth(t *testing.T) {
	svc := newTestService(&fakeObjectClient{}, &fakePresigner{url: "u"})
	if err := svc.Health(context.Background()); err != nil {
		t.Errorf("Health returned error: %v", err)
	}

	down := newTestService(&fakeObjectClient{headErr: errors.New("no route to host")}, &fakePresigner{url: "u"})
	if err := down.Health(context.Background()); err == nil {
		t.Error("Health should surface bucket connectivity errors")
	}
}
