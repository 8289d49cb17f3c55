package archive

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
)

// blobUploader is the part of *azblob.Client BlobWriter needs.
type blobUploader interface {
	UploadBuffer(ctx context.Context, containerName string, blobName string, buffer []byte, o *azblob.UploadBufferOptions) (azblob.UploadBufferResponse, error)
}

// BlobWriter uploads objects to an Azure Blob Storage container.
type BlobWriter struct {
	client    blobUploader
	container string
}

// NewBlobWriter connects to accountURL with cred. A nil cred uses
// DefaultAzureCredential.
func NewBlobWriter(accountURL, container string, cred azcore.TokenCredential) (*BlobWriter, error) {
	if cred == nil {
		c, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("creating azure credential: %w", err)
		}
		cred = c
	}
	client, err := azblob.NewClient(accountURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("creating blob client for %s: %w", accountURL, err)
	}
	return &BlobWriter{client: client, container: container}, nil
}

func (b *BlobWriter) Write(ctx context.Context, key string, data []byte) error {
	contentType := "application/zstd"
	_, err := b.client.UploadBuffer(ctx, b.container, key, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return fmt.Errorf("uploading %s to container %s: %w", key, b.container, err)
	}
	return nil
}
