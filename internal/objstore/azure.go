package objstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// AzureStore reads and writes blobs addressed as "azure://container/blob".
type AzureStore struct {
	client *azblob.Client
}

// NewAzureStore creates an Azure Blob store from the
// AZURE_STORAGE_CONNECTION_STRING environment variable.
func NewAzureStore() (*AzureStore, error) {
	conn := os.Getenv("AZURE_STORAGE_CONNECTION_STRING")
	if conn == "" {
		return nil, fmt.Errorf("AZURE_STORAGE_CONNECTION_STRING is not set")
	}

	client, err := azblob.NewClientFromConnectionString(conn, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure Blob client; %w", err)
	}
	return &AzureStore{client: client}, nil
}

// Read downloads the blob, or returns ErrNotFound if it is absent.
func (s *AzureStore) Read(ctx context.Context, path string) ([]byte, error) {
	container, blob, err := parseAzurePath(path)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.DownloadStream(ctx, container, blob, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to download %s; %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body of %s; %w", path, err)
	}
	return data, nil
}

// Write uploads the blob.
func (s *AzureStore) Write(ctx context.Context, path string, data []byte) error {
	container, blob, err := parseAzurePath(path)
	if err != nil {
		return err
	}

	if _, err := s.client.UploadBuffer(ctx, container, blob, data, nil); err != nil {
		return fmt.Errorf("failed to upload %s; %w", path, err)
	}
	return nil
}

func parseAzurePath(path string) (container, blob string, err error) {
	rest, ok := strings.CutPrefix(path, "azure://")
	if !ok {
		return "", "", fmt.Errorf("not an azure path: %s", path)
	}
	container, blob, ok = strings.Cut(rest, "/")
	if !ok || container == "" || blob == "" {
		return "", "", fmt.Errorf("malformed azure path: %s", path)
	}
	return container, blob, nil
}
