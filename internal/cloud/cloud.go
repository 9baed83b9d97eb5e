// Package cloud opens the portable gocloud.dev resources the control plane
// depends on: the vault bucket, the vault keeper and the activation topic.
package cloud

import (
	"context"
	"fmt"

	"gocloud.dev/blob"
	"gocloud.dev/pubsub"
	"gocloud.dev/secrets"

	// Register blob drivers
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"

	// Register pubsub drivers
	_ "gocloud.dev/pubsub/mempubsub"

	// Register all KMS provider drivers
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// OpenBucket opens the vault bucket. Supports mem:// and file:// URLs.
func OpenBucket(ctx context.Context, url string) (*blob.Bucket, error) {
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open vault bucket: %w", err)
	}
	return bucket, nil
}

// OpenKeeper opens a secrets.Keeper for the configured KMS provider using the keyURI.
// Supports: gcpkms://, awskms://, azurekeyvault://, hashivault://, base64key://
// An empty keyURI returns a nil keeper.
func OpenKeeper(ctx context.Context, keyURI string) (*secrets.Keeper, error) {
	if keyURI == "" {
		return nil, nil
	}
	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	return keeper, nil
}

// OpenTopic opens the activation queue topic.
func OpenTopic(ctx context.Context, url string) (*pubsub.Topic, error) {
	topic, err := pubsub.OpenTopic(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open activation topic: %w", err)
	}
	return topic, nil
}
