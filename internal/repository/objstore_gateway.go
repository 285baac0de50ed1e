package repository

import (
	"context"
	"errors"
	"fmt"
	"io"

	"CandleQuery/internal/domain/models"
	"CandleQuery/internal/domain/repository"
	"CandleQuery/pkg/objstore"
)

// ObjStoreGateway adapts the S3 client to the domain ObjectStore contract,
// translating missing-key errors into the domain sentinel.
type ObjStoreGateway struct {
	client *objstore.Client
}

// NewObjStoreGateway creates the gateway.
func NewObjStoreGateway(client *objstore.Client) *ObjStoreGateway {
	return &ObjStoreGateway{client: client}
}

func (g *ObjStoreGateway) ListObjects(ctx context.Context, prefix string) ([]repository.ObjectInfo, error) {
	objects, err := g.client.ListObjects(ctx, prefix)
	if err != nil {
		return nil, g.mapErr(err)
	}

	infos := make([]repository.ObjectInfo, len(objects))
	for i, obj := range objects {
		infos[i] = repository.ObjectInfo{
			Name:         obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
		}
	}
	return infos, nil
}

func (g *ObjStoreGateway) GetStream(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := g.client.GetStream(ctx, key)
	if err != nil {
		return nil, g.mapErr(err)
	}
	return rc, nil
}

func (g *ObjStoreGateway) Exists(ctx context.Context, key string) (bool, error) {
	return g.client.Exists(ctx, key)
}

func (g *ObjStoreGateway) Upload(ctx context.Context, key string, data []byte) error {
	if err := g.client.Upload(ctx, key, data); err != nil {
		return g.mapErr(err)
	}
	return nil
}

func (g *ObjStoreGateway) Bucket() string {
	return g.client.Bucket()
}

func (g *ObjStoreGateway) mapErr(err error) error {
	if errors.Is(err, objstore.ErrNotFound) {
		return fmt.Errorf("%w: %v", models.ErrObjectNotFound, err)
	}
	return err
}
