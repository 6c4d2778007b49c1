// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cloud

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
)

// GCSObject identifies one object in Cloud Storage.
type GCSObject struct {
	Bucket   string
	Name     string
	MIMEType string
}

func (o GCSObject) URI() string {
	return fmt.Sprintf("gs://%s/%s", o.Bucket, o.Name)
}

// ParseGCSURI splits a gs://bucket/name URI.
func ParseGCSURI(uri string) (GCSObject, error) {
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return GCSObject{}, fmt.Errorf("not a gs:// uri: %q", uri)
	}
	bucket, name, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || name == "" {
		return GCSObject{}, fmt.Errorf("gs:// uri needs a bucket and an object name: %q", uri)
	}
	return GCSObject{Bucket: bucket, Name: name}, nil
}

func writeObject(ctx context.Context, client *storage.Client, obj GCSObject, r io.Reader) error {
	w := client.Bucket(obj.Bucket).Object(obj.Name).NewWriter(ctx)
	w.ContentType = obj.MIMEType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write %s: %w", obj.URI(), err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize %s: %w", obj.URI(), err)
	}
	return nil
}

// GCSAssetStore stages videos in a bucket for the Vertex AI backend, which
// reads gs:// URIs directly. Staged objects are usable immediately.
type GCSAssetStore struct {
	Client *storage.Client
	Bucket string
	Prefix string
}

func NewGCSAssetStore(client *storage.Client, bucket string, prefix string) *GCSAssetStore {
	return &GCSAssetStore{Client: client, Bucket: bucket, Prefix: prefix}
}

func (s *GCSAssetStore) Register(ctx context.Context, localPath string, mimeType string) (*model.AssetHandle, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	obj := GCSObject{
		Bucket:   s.Bucket,
		Name:     path.Join(s.Prefix, uuid.NewString()+filepath.Ext(localPath)),
		MIMEType: mimeType,
	}
	if err = writeObject(ctx, s.Client, obj, f); err != nil {
		return nil, err
	}
	return &model.AssetHandle{
		Name:     obj.Name,
		URI:      obj.URI(),
		MIMEType: mimeType,
		State:    model.AssetStateActive,
	}, nil
}

func (s *GCSAssetStore) Refresh(ctx context.Context, handle *model.AssetHandle) (*model.AssetHandle, error) {
	if _, err := s.Client.Bucket(s.Bucket).Object(handle.Name).Attrs(ctx); err != nil {
		return nil, fmt.Errorf("failed to stat gs://%s/%s: %w", s.Bucket, handle.Name, err)
	}
	refreshed := *handle
	refreshed.State = model.AssetStateActive
	return &refreshed, nil
}

func (s *GCSAssetStore) Release(ctx context.Context, handle *model.AssetHandle) error {
	obj, err := ParseGCSURI(handle.URI)
	if err != nil {
		return err
	}
	return s.Client.Bucket(obj.Bucket).Object(obj.Name).Delete(ctx)
}

// GCSDocumentStore writes exported summaries as text objects under
// <bucket>/<folder>/. Every export gets a unique object name, so exporting
// the same name twice yields two objects.
type GCSDocumentStore struct {
	Client *storage.Client
	Bucket string
	Folder string
}

func (s *GCSDocumentStore) CreateDocument(ctx context.Context, name string, content io.Reader) (*model.ExportedDocument, error) {
	obj := GCSObject{
		Bucket:   s.Bucket,
		Name:     path.Join(s.Folder, fmt.Sprintf("%s_%s.txt", name, uuid.NewString())),
		MIMEType: ExportMediaMIMEType,
	}
	if err := writeObject(ctx, s.Client, obj, content); err != nil {
		return nil, err
	}
	return &model.ExportedDocument{ID: obj.URI(), Name: name, Destination: ExportGCS}, nil
}

func (s *GCSDocumentStore) Close() error {
	return s.Client.Close()
}
