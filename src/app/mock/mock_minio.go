package minio_mock

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
)

type storedObject struct {
	data        []byte
	contentType string
}

// MockClient is an in-memory stand-in for the minio client. It keeps objects
// in a map keyed by "bucket/key" and lets tests inject failures per method.
type MockClient struct {
	mu      sync.Mutex
	objects map[string]storedObject
	buckets map[string]bool

	BucketExistsErr error
	MakeBucketErr   error
	SetPolicyErr    error
	PutErr          error
	GetErr          error
	RemoveErr       error
	ListErr         error

	Policies []string
}

func NewMockClient() *MockClient {
	return &MockClient{
		objects: make(map[string]storedObject),
		buckets: make(map[string]bool),
	}
}

func (m *MockClient) BucketExists(_ context.Context, bucketName string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BucketExistsErr != nil {
		return false, m.BucketExistsErr
	}
	return m.buckets[bucketName], nil
}

func (m *MockClient) MakeBucket(_ context.Context, bucketName string, _ minio.MakeBucketOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.MakeBucketErr != nil {
		return m.MakeBucketErr
	}
	m.buckets[bucketName] = true
	return nil
}

func (m *MockClient) SetBucketPolicy(_ context.Context, _ string, policy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetPolicyErr != nil {
		return m.SetPolicyErr
	}
	m.Policies = append(m.Policies, policy)
	return nil
}

func (m *MockClient) PutObject(_ context.Context, bucketName, objectName string, reader io.Reader, _ int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PutErr != nil {
		return minio.UploadInfo{}, m.PutErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	m.objects[bucketName+"/"+objectName] = storedObject{data: data, contentType: opts.ContentType}
	return minio.UploadInfo{Bucket: bucketName, Key: objectName, Size: int64(len(data))}, nil
}

func (m *MockClient) GetObject(_ context.Context, bucketName, objectName string, _ minio.GetObjectOptions) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	obj, ok := m.objects[bucketName+"/"+objectName]
	if !ok {
		return nil, noSuchKey(objectName)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (m *MockClient) StatObject(_ context.Context, bucketName, objectName string, _ minio.StatObjectOptions) (minio.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[bucketName+"/"+objectName]
	if !ok {
		return minio.ObjectInfo{}, noSuchKey(objectName)
	}
	return minio.ObjectInfo{
		Key:         objectName,
		Size:        int64(len(obj.data)),
		ContentType: obj.contentType,
	}, nil
}

func (m *MockClient) RemoveObject(_ context.Context, bucketName, objectName string, _ minio.RemoveObjectOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RemoveErr != nil {
		return m.RemoveErr
	}
	delete(m.objects, bucketName+"/"+objectName)
	return nil
}

func (m *MockClient) ListObjects(_ context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo)
	go func() {
		defer close(ch)
		m.mu.Lock()
		keys := make([]string, 0)
		for full := range m.objects {
			key, ok := strings.CutPrefix(full, bucketName+"/")
			if !ok {
				continue
			}
			if strings.HasPrefix(key, opts.Prefix) {
				keys = append(keys, key)
			}
		}
		listErr := m.ListErr
		m.mu.Unlock()
		if listErr != nil {
			ch <- minio.ObjectInfo{Err: listErr}
			return
		}
		sort.Strings(keys)
		for _, key := range keys {
			ch <- minio.ObjectInfo{Key: key}
		}
	}()
	return ch
}

func noSuchKey(key string) error {
	return minio.ErrorResponse{
		Code:       "NoSuchKey",
		Message:    "The specified key does not exist.",
		Key:        key,
		StatusCode: http.StatusNotFound,
	}
}
