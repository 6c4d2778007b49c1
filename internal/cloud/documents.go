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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"cloud.google.com/go/storage"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	DocumentMIMEType    = "application/vnd.google-apps.document"
	ExportMediaMIMEType = "text/plain"
	serviceAccountType  = "service_account"
)

// DocumentStore creates one remote document per call. Calls are not
// idempotent.
type DocumentStore interface {
	CreateDocument(ctx context.Context, name string, content io.Reader) (*model.ExportedDocument, error)
	Close() error
}

// DocumentStoreFactory builds an authorized DocumentStore. It is called for
// every export so a credential file fixed after startup is picked up.
type DocumentStoreFactory func(ctx context.Context) (DocumentStore, error)

// ServiceAccount holds the fields of a service account key file that are
// checked before the key is handed to the auth library.
type ServiceAccount struct {
	Type        string `json:"type"`
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

// LoadServiceAccount reads and checks a service account key file, returning
// the raw JSON for the auth library.
func LoadServiceAccount(path string) ([]byte, *ServiceAccount, error) {
	if path == "" {
		return nil, nil, errors.New("no service account credentials file configured")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("service account credentials file %s not found", path)
		}
		return nil, nil, fmt.Errorf("failed to read service account credentials: %w", err)
	}
	account := &ServiceAccount{}
	if err = json.Unmarshal(data, account); err != nil {
		return nil, nil, fmt.Errorf("service account credentials in %s are not valid JSON: %w", path, err)
	}
	switch {
	case account.Type != serviceAccountType:
		return nil, nil, fmt.Errorf("credentials in %s are of type %q, expected %q", path, account.Type, serviceAccountType)
	case account.ClientEmail == "":
		return nil, nil, fmt.Errorf("service account credentials in %s have no client_email", path)
	case account.PrivateKey == "":
		return nil, nil, fmt.Errorf("service account credentials in %s have no private_key", path)
	}
	return data, account, nil
}

// DriveDocumentStore converts plain text into Google Docs inside one folder.
type DriveDocumentStore struct {
	Service  *drive.Service
	FolderID string
}

func (s *DriveDocumentStore) CreateDocument(ctx context.Context, name string, content io.Reader) (*model.ExportedDocument, error) {
	metadata := &drive.File{
		Name:     name,
		MimeType: DocumentMIMEType,
	}
	if s.FolderID != "" {
		metadata.Parents = []string{s.FolderID}
	}
	file, err := s.Service.Files.Create(metadata).
		Media(content, googleapi.ContentType(ExportMediaMIMEType)).
		Fields("id", "name").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create document %q: %w", name, err)
	}
	return &model.ExportedDocument{ID: file.Id, Name: file.Name, Destination: ExportDrive}, nil
}

func (s *DriveDocumentStore) Close() error {
	return nil
}

// NewDocumentStoreFactory returns the factory for the configured export
// destination.
func NewDocumentStoreFactory(config *Config) DocumentStoreFactory {
	export := config.Export
	return func(ctx context.Context) (DocumentStore, error) {
		data, _, err := LoadServiceAccount(export.CredentialsFile)
		if err != nil {
			return nil, err
		}
		switch export.Destination {
		case ExportGCS:
			creds, err := google.CredentialsFromJSON(ctx, data, storage.ScopeReadWrite)
			if err != nil {
				return nil, fmt.Errorf("invalid service account credentials: %w", err)
			}
			client, err := storage.NewClient(ctx, option.WithCredentials(creds))
			if err != nil {
				return nil, fmt.Errorf("failed to create storage client: %w", err)
			}
			return &GCSDocumentStore{Client: client, Bucket: export.Bucket, Folder: export.FolderID}, nil
		default:
			creds, err := google.CredentialsFromJSON(ctx, data, drive.DriveScope)
			if err != nil {
				return nil, fmt.Errorf("invalid service account credentials: %w", err)
			}
			service, err := drive.NewService(ctx, option.WithCredentials(creds))
			if err != nil {
				return nil, fmt.Errorf("failed to create drive service: %w", err)
			}
			return &DriveDocumentStore{Service: service, FolderID: export.FolderID}, nil
		}
	}
}
