package s3client

import (
	"context"
	"testing"
)

// TestClient creates a gofakes3-backed client for tests. The server is
// stopped when the test completes.
func TestClient(t testing.TB, bucketName string) *Client {
	t.Helper()

	client, stop, err := NewFake(context.Background(), bucketName)
	if err != nil {
		t.Fatalf("failed to start fake S3: %v", err)
	}
	t.Cleanup(stop)
	return client
}
