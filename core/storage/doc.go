// Package storage provides the S3-compatible object store used to offload
// archive exports before they are purged from the vendor cloud.
//
// It wraps the MinIO Go client behind a small interface so the archive
// sweep can be unit-tested against a mock (see core/storage/mocks). Both
// AWS S3 and self-hosted MinIO instances work.
//
// # Operations
//
//   - BucketExists / MakeBucket: verify or create the offload bucket.
//   - PutObject: upload an export stream.
//   - GetObject: retrieve an offloaded export (for spot checks).
//
// # Usage
//
//	client, err := storage.NewClient(config)
//	exists, err := client.BucketExists(ctx, "archive-offload")
package storage
