package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"github.com/zeebo/xxh3"

	"github.com/pixelfall/pixelfall/client"
)

// BlobGateway fronts the blob store client with a short-lived content
// cache: re-sending bytes already transferred in the cache window reuses
// the locator instead of hitting the store again.
type BlobGateway struct {
	client *client.Client
	cache  *cache.Cache
}

func NewBlobGateway(cl *client.Client) *BlobGateway {
	return &BlobGateway{
		client: cl,
		cache:  cache.New(10*time.Minute, 15*time.Minute),
	}
}

func (g *BlobGateway) Put(ctx context.Context, pathname string, contentType string, content []byte) (string, error) {
	key := contentKey(content)

	if cached, found := g.cache.Get(key); found {
		return cached.(string), nil
	}

	url, err := g.client.Put(ctx, pathname, contentType, content)
	if err != nil {
		return "", errors.Wrap(err, "BlobGateway.Put: transfer failed")
	}

	g.cache.Set(key, url, cache.DefaultExpiration)

	return url, nil
}

func (g *BlobGateway) Delete(ctx context.Context, locator string) error {
	err := g.client.Delete(ctx, locator)
	if err != nil {
		return errors.Wrap(err, "BlobGateway.Delete: delete failed")
	}
	return nil
}

func contentKey(content []byte) string {
	return fmt.Sprintf("blob:%016x", xxh3.Hash(content))
}
